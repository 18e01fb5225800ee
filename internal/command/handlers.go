package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gridbot/internal/domain"
)

var startTime = time.Now()

// GameBackend is the backend surface the built-in commands use.
type GameBackend interface {
	GameByThread(ctx context.Context, channelID string) (*domain.Game, error)
	StartGame(ctx context.Context, homeTeam, awayTeam string) (*domain.Game, error)
	EndGame(ctx context.Context, channelID string) (*domain.Game, error)
}

// RegisterBuiltins wires the standard command set into the registry.
func RegisterBuiltins(reg *Registry, games GameBackend) {
	reg.Register(&helpHandler{registry: reg})
	reg.Register(&pingHandler{})
	reg.Register(&gameInfoHandler{games: games})
	reg.Register(&startGameHandler{games: games})
	reg.Register(&endGameHandler{games: games})
	reg.Register(&messageAllHandler{})
}

// --- help ---

type helpHandler struct {
	registry *Registry
}

func (h *helpHandler) ID() ID              { return Help }
func (h *helpHandler) Description() string { return "List available commands" }

func (h *helpHandler) Execute(ctx context.Context, inv Invocation) (string, error) {
	var sb strings.Builder
	sb.WriteString("**Commands**\n")
	for _, def := range h.registry.Definitions() {
		fmt.Fprintf(&sb, "/%s — %s\n", def.Name, def.Description)
	}
	return sb.String(), nil
}

// --- ping ---

type pingHandler struct{}

func (h *pingHandler) ID() ID              { return Ping }
func (h *pingHandler) Description() string { return "Check that the bot is alive" }

func (h *pingHandler) Execute(ctx context.Context, inv Invocation) (string, error) {
	return fmt.Sprintf("Pong! Uptime: %s", time.Since(startTime).Round(time.Second)), nil
}

// --- game_info ---

type gameInfoHandler struct {
	games GameBackend
}

func (h *gameInfoHandler) ID() ID              { return GameInfo }
func (h *gameInfoHandler) Description() string { return "Show the state of the game in this thread" }

func (h *gameInfoHandler) Execute(ctx context.Context, inv Invocation) (string, error) {
	game, err := h.games.GameByThread(ctx, inv.Event.LocationID)
	if err != nil {
		return "", fmt.Errorf("fetch game: %w", err)
	}
	return FormatGame(game), nil
}

// --- start_game ---

type startGameHandler struct {
	games GameBackend
}

func (h *startGameHandler) ID() ID              { return StartGame }
func (h *startGameHandler) Description() string { return "Start a new game between two teams" }

func (h *startGameHandler) Execute(ctx context.Context, inv Invocation) (string, error) {
	if len(inv.Event.Args) < 2 {
		return "Usage: /start_game <home team> <away team>", nil
	}
	game, err := h.games.StartGame(ctx, inv.Event.Args[0], inv.Event.Args[1])
	if err != nil {
		return "", fmt.Errorf("start game: %w", err)
	}
	return fmt.Sprintf("Game started: %s vs %s. Waiting on the away coach's coin toss call.",
		game.HomeTeam, game.AwayTeam), nil
}

// --- end_game ---

type endGameHandler struct {
	games GameBackend
}

func (h *endGameHandler) ID() ID              { return EndGame }
func (h *endGameHandler) Description() string { return "End the game in this thread" }

func (h *endGameHandler) Execute(ctx context.Context, inv Invocation) (string, error) {
	game, err := h.games.EndGame(ctx, inv.Event.LocationID)
	if err != nil {
		return "", fmt.Errorf("end game: %w", err)
	}
	return fmt.Sprintf("Final: %s %d — %s %d",
		game.HomeTeam, game.HomeScore, game.AwayTeam, game.AwayScore), nil
}

// --- message_all ---

type messageAllHandler struct{}

func (h *messageAllHandler) ID() ID              { return MessageAll }
func (h *messageAllHandler) Description() string { return "Post an announcement" }

func (h *messageAllHandler) Execute(ctx context.Context, inv Invocation) (string, error) {
	if len(inv.Event.Args) == 0 {
		return "Usage: /message_all <announcement>", nil
	}
	return "📢 " + strings.Join(inv.Event.Args, " "), nil
}

// FormatGame renders a game record for chat.
func FormatGame(game *domain.Game) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s %d — %s %d**\n", game.HomeTeam, game.HomeScore, game.AwayTeam, game.AwayScore)
	fmt.Fprintf(&sb, "Q%d %s", game.Quarter, game.Clock)
	if game.Down > 0 {
		fmt.Fprintf(&sb, " | %s & %d at the %d", ordinalDown(game.Down), game.YardsToGo, game.BallLocation)
	}
	if game.Possession != "" {
		fmt.Fprintf(&sb, " | %s ball", game.Possession)
	}
	return sb.String()
}

func ordinalDown(down int) string {
	switch down {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", down)
	}
}
