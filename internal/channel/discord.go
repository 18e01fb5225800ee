// Package channel connects the Discord gateway to the event bus. Inbound
// messages and slash-command interactions become domain.ChatEvents; outbound
// replies are split to fit Discord's message limit and sent back.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gridbot/internal/command"
	"gridbot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

// Discord is the gateway transport. It owns the discordgo session and is
// the only package that touches Discord API types.
type Discord struct {
	token    string
	guildID  string
	roles    RoleConfig
	commands *command.Registry
	session  *discordgo.Session
	bus      domain.EventBus
	logger   *slog.Logger
}

// RoleConfig maps Discord guild role IDs onto the bot's role ladder.
type RoleConfig struct {
	AdminRoleIDs        []string
	CommissionerRoleIDs []string
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token    string
	GuildID  string
	Roles    RoleConfig
	Commands *command.Registry
	Logger   *slog.Logger
}

// NewDiscord creates the Discord channel. Start must be called to connect.
func NewDiscord(cfg DiscordConfig) *Discord {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		token:    cfg.Token,
		guildID:  cfg.GuildID,
		roles:    cfg.Roles,
		commands: cfg.Commands,
		logger:   logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord with a bot token, registers the slash commands,
// and pumps gateway traffic onto the bus until ctx is cancelled.
func (d *Discord) Start(ctx context.Context, bus domain.EventBus) error {
	d.bus = bus

	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageTyping |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d.session = session

	bus.OnReply(func(reply domain.Reply) {
		if reply.Content == "" {
			return
		}
		d.sendMessage(reply.LocationID, reply.Content)
	})

	session.AddHandler(d.onMessageCreate)
	session.AddHandler(d.onInteractionCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	d.registerSlashCommands()

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// Connected reports gateway liveness for the health supervisor.
func (d *Discord) Connected() bool {
	if d.session == nil {
		return false
	}
	return d.session.DataReady
}

// Reconnect cycles the gateway session. Used by the restart watchdog when
// the connection wedges.
func (d *Discord) Reconnect() error {
	if d.session == nil {
		return fmt.Errorf("discord session not started")
	}
	if err := d.session.Close(); err != nil {
		d.logger.Warn("close before reconnect failed", "err", err)
	}
	return d.session.Open()
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Guild messages from other guilds are not ours. DMs have no guild.
	if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
		return
	}

	kind := domain.KindChannelMessage
	if m.GuildID == "" {
		kind = domain.KindDirectMessage
	}

	evt := domain.ChatEvent{
		Kind:       kind,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
		LocationID: m.ChannelID,
		MessageID:  m.ID,
		FromSelf:   m.Author.ID == s.State.User.ID,
		Timestamp:  time.Now(),
	}

	d.logger.Debug("discord message received",
		"author", m.Author.Username,
		"channel_id", m.ChannelID,
		"kind", kind,
		"content_len", len(m.Content),
	)

	d.bus.Publish(evt)
}

func (d *Discord) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	args := make([]string, 0, len(data.Options))
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			args = append(args, opt.StringValue())
		}
	}

	// Acknowledge now; the actual reply arrives as a channel message once
	// the router has processed the event.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		d.logger.Warn("interaction ack failed", "command", data.Name, "err", err)
	}

	author := interactionAuthor(i)
	if author == nil {
		d.logger.Warn("interaction without author", "command", data.Name)
		return
	}

	d.bus.Publish(domain.ChatEvent{
		Kind:       domain.KindSlashCommand,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		LocationID: i.ChannelID,
		MessageID:  i.ID,
		Command:    data.Name,
		Args:       args,
		Timestamp:  time.Now(),
	})
}

// interactionAuthor handles both guild interactions (Member set) and DM
// interactions (User set).
func interactionAuthor(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// ResolveRole maps a chat event's author to the bot's role ladder by
// looking up the member's guild roles. Anyone not carrying a configured
// role ID is a plain user.
func (d *Discord) ResolveRole(evt domain.ChatEvent) domain.Role {
	if d.session == nil || d.guildID == "" {
		return domain.RoleUser
	}

	member, err := d.session.State.Member(d.guildID, evt.AuthorID)
	if err != nil {
		member, err = d.session.GuildMember(d.guildID, evt.AuthorID)
		if err != nil {
			d.logger.Debug("member lookup failed, treating as user",
				"author", evt.AuthorID, "err", err)
			return domain.RoleUser
		}
	}

	return roleFromIDs(member.Roles, d.roles)
}

func roleFromIDs(memberRoles []string, cfg RoleConfig) domain.Role {
	has := func(wanted []string) bool {
		for _, w := range wanted {
			for _, r := range memberRoles {
				if r == w {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has(cfg.AdminRoleIDs):
		return domain.RoleAdmin
	case has(cfg.CommissionerRoleIDs):
		return domain.RoleCommissioner
	default:
		return domain.RoleUser
	}
}

func (d *Discord) sendMessage(channelID, content string) {
	for _, chunk := range splitMessage(content, discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk); err != nil {
			d.logger.Error("discord send failed", "channel", channelID, "err", err)
		}
	}
}

// commandOptions declares the string options each slash command takes.
// Commands not listed here take none.
var commandOptions = map[string][]*discordgo.ApplicationCommandOption{
	string(command.StartGame): {
		stringOption("home", "Home team name", true),
		stringOption("away", "Away team name", true),
	},
	string(command.MessageAll): {
		stringOption("text", "The announcement to send", true),
	},
	string(command.GameInfo): {
		stringOption("channel", "Game thread to inspect (defaults to this one)", false),
	},
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// registerSlashCommands publishes the registry's command table to Discord.
// The registry is the single source of truth; nothing is declared here that
// the router cannot dispatch.
func (d *Discord) registerSlashCommands() {
	for _, def := range d.commands.Definitions() {
		cmd := &discordgo.ApplicationCommand{
			Name:        def.Name,
			Description: def.Description,
			Options:     commandOptions[def.Name],
		}
		if _, err := d.session.ApplicationCommandCreate(d.session.State.User.ID, d.guildID, cmd); err != nil {
			d.logger.Warn("failed to register slash command", "command", def.Name, "err", err)
		}
	}
}

// splitMessage splits a reply into chunks that fit Discord's length limit,
// preferring newline boundaries.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
