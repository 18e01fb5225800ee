// Package router is the orchestrator: every inbound chat event is
// classified, correlated against live game state, and turned into at most
// one outbound reply. Permission and extraction failures short-circuit
// before any backend write; only a syntactically valid, permitted action
// reaches the network.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gridbot/internal/backend"
	"gridbot/internal/command"
	"gridbot/internal/domain"
	"gridbot/internal/extract"
	"gridbot/internal/metrics"
	"gridbot/internal/permission"
	"gridbot/internal/submit"
)

const defaultConcurrency = 8

const (
	msgPermissionDenied = "You don't have permission to use that command."
	msgBackendDown      = "The game backend isn't responding right now. Please try again in a moment."
	msgUnexpected       = "Something went wrong handling that. Please try again."
)

// PendingResolver answers what, if anything, a location/author is expected
// to submit.
type PendingResolver interface {
	ResolvePendingAction(ctx context.Context, locationID, authorID string, isDM bool) (*domain.PendingAction, error)
}

// Submitter executes one logical submission with retries.
type Submitter interface {
	Submit(ctx context.Context, action *domain.PendingAction, payload submit.Payload) *domain.SubmissionResult
}

// RoleResolver maps an event's author to a permission role. The Discord
// channel supplies one backed by guild role membership.
type RoleResolver func(evt domain.ChatEvent) domain.Role

// Router consumes the event bus and dispatches each event.
type Router struct {
	bus         domain.EventBus
	gate        *permission.Gate
	commands    *command.Registry
	resolver    PendingResolver
	pipeline    Submitter
	roles       RoleResolver
	logger      *slog.Logger
	concurrency int
}

// Config holds the router's dependencies.
type Config struct {
	Bus         domain.EventBus
	Gate        *permission.Gate
	Commands    *command.Registry
	Resolver    PendingResolver
	Pipeline    Submitter
	Roles       RoleResolver
	Logger      *slog.Logger
	Concurrency int
}

// New creates a router.
func New(cfg Config) *Router {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Roles == nil {
		cfg.Roles = func(domain.ChatEvent) domain.Role { return domain.RoleUser }
	}
	return &Router{
		bus:         cfg.Bus,
		gate:        cfg.Gate,
		commands:    cfg.Commands,
		resolver:    cfg.Resolver,
		pipeline:    cfg.Pipeline,
		roles:       cfg.Roles,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound events with bounded concurrency until the context
// is cancelled or the bus closes.
func (r *Router) Run(ctx context.Context) {
	r.logger.Info("event router started", "concurrency", r.concurrency)

	sem := make(chan struct{}, r.concurrency)
	inbound := r.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event router stopping")
			return
		case evt, ok := <-inbound:
			if !ok {
				r.logger.Info("inbound channel closed, event router stopping")
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				r.logger.Info("event router stopping")
				return
			}
			go func(e domain.ChatEvent) {
				defer func() { <-sem }()
				r.processEvent(ctx, e)
			}(evt)
		}
	}
}

// processEvent runs one event to completion. Nothing escapes: a panic in
// any handler becomes a generic failure reply and an error log, so a single
// bad event can never take the process down.
func (r *Router) processEvent(ctx context.Context, evt domain.ChatEvent) {
	metrics.EventsTotal.Inc()
	metrics.ActiveHandlers.Inc()
	defer metrics.ActiveHandlers.Dec()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling event",
				"location", evt.LocationID, "author", evt.AuthorID, "panic", rec)
			r.send(domain.Reply{LocationID: evt.LocationID, Content: msgUnexpected})
		}
	}()

	reply := r.HandleEvent(ctx, evt)
	if reply != nil {
		r.send(*reply)
	}
}

func (r *Router) send(reply domain.Reply) {
	metrics.RepliesTotal.Inc()
	r.bus.SendReply(reply)
}

// HandleEvent classifies one event and returns its single reply, or nil for
// ignored events. The outcome order is the contract: self-authored events
// first, then slash commands behind the permission gate, then game input
// resolution, then silent ignore.
func (r *Router) HandleEvent(ctx context.Context, evt domain.ChatEvent) *domain.Reply {
	if evt.FromSelf {
		return nil
	}

	if evt.Kind == domain.KindSlashCommand {
		return r.handleCommand(ctx, evt)
	}

	action, err := r.resolver.ResolvePendingAction(ctx, evt.LocationID, evt.AuthorID, evt.Kind == domain.KindDirectMessage)
	if err != nil {
		r.logger.Error("pending action resolution failed",
			"location", evt.LocationID, "author", evt.AuthorID, "err", err)
		return &domain.Reply{LocationID: evt.LocationID, Content: msgBackendDown}
	}
	if action == nil {
		return nil
	}

	if action.Kind.NeedsNumber() {
		return r.handleNumber(ctx, evt, action)
	}
	return r.handleCoinToss(ctx, evt, action)
}

func (r *Router) handleCommand(ctx context.Context, evt domain.ChatEvent) *domain.Reply {
	role := r.roles(evt)
	if !r.gate.IsAllowed(role, evt.Command) {
		r.logger.Info("command denied",
			"command", evt.Command, "author", evt.AuthorID, "role", role)
		return &domain.Reply{LocationID: evt.LocationID, Content: msgPermissionDenied}
	}

	handler, ok := r.commands.Get(evt.Command)
	if !ok {
		return &domain.Reply{LocationID: evt.LocationID, Content: fmt.Sprintf("Unknown command /%s.", evt.Command)}
	}

	out, err := handler.Execute(ctx, command.Invocation{Event: evt, Role: role})
	if err != nil {
		r.logger.Error("command handler failed", "command", evt.Command, "err", err)
		return &domain.Reply{LocationID: evt.LocationID, Content: r.userMessage(err)}
	}
	return &domain.Reply{LocationID: evt.LocationID, Content: out}
}

func (r *Router) handleNumber(ctx context.Context, evt domain.ChatEvent, action *domain.PendingAction) *domain.Reply {
	number, err := extract.SingleNumber(evt.Content)
	if err != nil {
		return &domain.Reply{LocationID: evt.LocationID, Content: numberErrorMessage(err, action)}
	}

	payload := submit.Payload{
		Number:        number,
		TimeoutCalled: extract.TimeoutCalled(evt.Content),
		MessageID:     evt.MessageID,
	}

	if action.Kind == domain.InputOffenseNumber {
		call := extract.PlayCallFrom(evt.Content)
		if call == "" {
			return &domain.Reply{
				LocationID: evt.LocationID,
				Content:    "Include exactly one play call with your number (run, pass, spike, kneel, punt, field goal, pat, or two point).",
			}
		}
		payload.PlayCall = call
		payload.Runoff = extract.RunoffTypeFrom(evt.Content)
	}

	result := r.pipeline.Submit(ctx, action, payload)
	if result.Err != nil {
		return &domain.Reply{LocationID: evt.LocationID, Content: r.userMessage(result.Err)}
	}
	return &domain.Reply{LocationID: evt.LocationID, Content: formatSubmission(action, result)}
}

// coin toss vocabularies, per input kind
var (
	vocabCall     = []string{"heads", "tails"}
	vocabChoice   = []string{"receive", "defer"}
	vocabChoiceOT = []string{"offense", "defense"}
)

func (r *Router) handleCoinToss(ctx context.Context, evt domain.ChatEvent, action *domain.PendingAction) *domain.Reply {
	vocab := vocabCall
	if action.Kind == domain.InputCoinTossChoice {
		vocab = vocabChoice
		if action.Overtime {
			vocab = vocabChoiceOT
		}
	}

	word, ok := matchVocab(evt.Content, vocab)
	if !ok {
		return &domain.Reply{
			LocationID: evt.LocationID,
			Content:    fmt.Sprintf("Please resubmit the %s: say %s.", action.Label, orList(vocab)),
		}
	}

	result := r.pipeline.Submit(ctx, action, submit.Payload{Choice: word, MessageID: evt.MessageID})
	if result.Err != nil {
		return &domain.Reply{LocationID: evt.LocationID, Content: r.userMessage(result.Err)}
	}
	return &domain.Reply{LocationID: evt.LocationID, Content: formatSubmission(action, result)}
}

// matchVocab returns the single vocabulary word present in text. Zero or
// multiple matches both fail, so "heads no wait tails" asks for a resubmit.
func matchVocab(text string, vocab []string) (string, bool) {
	var found string
	for _, word := range vocab {
		if extract.ContainsKeyword(text, word) {
			if found != "" {
				return "", false
			}
			found = word
		}
	}
	return found, found != ""
}

func orList(words []string) string {
	if len(words) == 2 {
		return fmt.Sprintf("%q or %q", words[0], words[1])
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

func numberErrorMessage(err error, action *domain.PendingAction) string {
	switch {
	case errors.Is(err, extract.ErrNoNumber):
		return fmt.Sprintf("I couldn't find a number between %d and %d for the %s. Please resubmit.",
			extract.MinNumber, extract.MaxNumber, action.Label)
	case errors.Is(err, extract.ErrMultipleNumbers):
		return fmt.Sprintf("I found more than one number for the %s. Please resubmit with exactly one.",
			action.Label)
	default:
		return msgUnexpected
	}
}

// userMessage converts a classified failure into the user-facing text for
// it. Validation rejections are relayed verbatim; transport problems get a
// generic retry message and are logged as system faults by the pipeline.
func (r *Router) userMessage(err error) string {
	var vErr *backend.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	var uErr *backend.UnavailableError
	if errors.As(err, &uErr) {
		return msgBackendDown
	}
	var tErr *backend.TransientError
	if errors.As(err, &tErr) {
		return msgBackendDown
	}
	r.logger.Error("unexpected failure surfaced to user", "err", err)
	return msgUnexpected
}

func formatSubmission(action *domain.PendingAction, result *domain.SubmissionResult) string {
	switch action.Kind {
	case domain.InputDefenseNumber:
		// The number stays secret; confirm receipt without echoing state.
		return "Defensive number received. Waiting on the offense."

	case domain.InputOffenseNumber:
		play := result.Play
		if play == nil {
			return "Play submitted."
		}
		return fmt.Sprintf("%s for %d yards. %s %d — %s %d | Q%d %s",
			play.Result, play.YardsGained,
			"Home", play.HomeScore, "Away", play.AwayScore,
			play.Quarter, play.Clock)

	case domain.InputCoinTossCall:
		game := result.Game
		if game == nil || game.CoinTossWinner == "" {
			return "Coin toss call received."
		}
		return fmt.Sprintf("The %s team wins the toss! Waiting on their choice.", game.CoinTossWinner)

	case domain.InputCoinTossChoice:
		game := result.Game
		if game == nil {
			return "Coin toss choice received."
		}
		return fmt.Sprintf("Choice registered: %s. Kickoff is up next.", game.CoinTossChoice)

	default:
		return "Submission received."
	}
}
