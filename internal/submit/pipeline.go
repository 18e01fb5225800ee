// Package submit executes backend writes with bounded exponential-backoff
// retry and normalizes every outcome into a SubmissionResult. Validation
// rejections are never retried; a semantically rejected submission cannot
// succeed on a second attempt.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gridbot/internal/audit"
	"gridbot/internal/backend"
	"gridbot/internal/domain"
	"gridbot/internal/metrics"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	logTimeout          = 10 * time.Second
)

// Writer is the slice of the backend client the pipeline needs.
type Writer interface {
	CoinTossCall(ctx context.Context, gameID, call string) (*domain.Game, error)
	CoinTossChoice(ctx context.Context, gameID, choice string) (*domain.Game, error)
	SubmitOffense(ctx context.Context, gameID string, number int, call domain.PlayCall, runoff domain.RunoffType, timeoutCalled bool) (*domain.Play, error)
	SubmitDefense(ctx context.Context, gameID string, number int, timeoutCalled bool) (*domain.Play, error)
	LogMessage(ctx context.Context, rec backend.MessageLog) error
}

// Payload carries the extracted action for one submission. The populated
// fields depend on the pending action's input kind.
type Payload struct {
	Number        int
	PlayCall      domain.PlayCall
	Runoff        domain.RunoffType
	TimeoutCalled bool
	Choice        string // coin toss call or choice vocabulary word
	MessageID     string // originating chat message, for the audit trail
}

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Pipeline submits actions to the backend.
type Pipeline struct {
	writer Writer
	store  *audit.Store // optional local mirror of the message log
	policy Policy
	logger *slog.Logger
}

// Config holds the pipeline's dependencies.
type Config struct {
	Writer Writer
	Store  *audit.Store
	Policy Policy
	Logger *slog.Logger
}

// New creates a submission pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		writer: cfg.Writer,
		store:  cfg.Store,
		policy: cfg.Policy.withDefaults(),
		logger: cfg.Logger,
	}
}

// Submit executes one logical submission against the backend. Transport and
// 5xx failures are retried with exponential backoff up to the policy bound;
// validation rejections return after exactly one attempt. Exhausted retries
// surface the final failure wrapped as UnavailableError.
func (p *Pipeline) Submit(ctx context.Context, action *domain.PendingAction, payload Payload) *domain.SubmissionResult {
	metrics.SubmissionsTotal.Inc()
	start := time.Now()
	result := p.submitWithRetry(ctx, action, payload)
	metrics.BackendLatency.Observe(time.Since(start).Seconds())

	if result.Err == nil {
		p.logSubmission(action, payload, result)
	}
	return result
}

func (p *Pipeline) submitWithRetry(ctx context.Context, action *domain.PendingAction, payload Payload) *domain.SubmissionResult {
	var lastErr error
	delay := p.policy.InitialDelay

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.RetriesTotal.Inc()
			p.logger.Warn("retrying submission",
				"game", action.GameID,
				"kind", action.Kind,
				"attempt", attempt,
				"backoff", delay,
			)
			select {
			case <-ctx.Done():
				return &domain.SubmissionResult{Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
			if delay > p.policy.MaxDelay {
				delay = p.policy.MaxDelay
			}
		}

		result, err := p.attempt(ctx, action, payload)
		if err == nil {
			return result
		}

		var vErr *backend.ValidationError
		if errors.As(err, &vErr) {
			metrics.ValidationRejections.Inc()
			p.logger.Info("submission rejected by backend",
				"game", action.GameID, "kind", action.Kind, "reason", vErr.Message)
			return &domain.SubmissionResult{Err: vErr}
		}

		var tErr *backend.TransientError
		if !errors.As(err, &tErr) {
			// Not transport, not validation; do not retry.
			return &domain.SubmissionResult{Err: err}
		}
		lastErr = err
	}

	metrics.BackendFailures.Inc()
	p.logger.Error("submission failed, retries exhausted",
		"game", action.GameID, "kind", action.Kind, "attempts", p.policy.MaxAttempts, "err", lastErr)
	return &domain.SubmissionResult{Err: &backend.UnavailableError{
		Attempts: p.policy.MaxAttempts,
		Last:     lastErr,
	}}
}

// attempt dispatches one backend call for the action's input kind.
func (p *Pipeline) attempt(ctx context.Context, action *domain.PendingAction, payload Payload) (*domain.SubmissionResult, error) {
	switch action.Kind {
	case domain.InputCoinTossCall:
		game, err := p.writer.CoinTossCall(ctx, action.GameID, payload.Choice)
		if err != nil {
			return nil, err
		}
		return &domain.SubmissionResult{Game: game}, nil

	case domain.InputCoinTossChoice:
		game, err := p.writer.CoinTossChoice(ctx, action.GameID, payload.Choice)
		if err != nil {
			return nil, err
		}
		return &domain.SubmissionResult{Game: game}, nil

	case domain.InputOffenseNumber:
		play, err := p.writer.SubmitOffense(ctx, action.GameID, payload.Number, payload.PlayCall, payload.Runoff, payload.TimeoutCalled)
		if err != nil {
			return nil, err
		}
		return &domain.SubmissionResult{Play: play}, nil

	case domain.InputDefenseNumber:
		play, err := p.writer.SubmitDefense(ctx, action.GameID, payload.Number, payload.TimeoutCalled)
		if err != nil {
			return nil, err
		}
		return &domain.SubmissionResult{Play: play}, nil

	default:
		return nil, fmt.Errorf("unknown input kind %q", action.Kind)
	}
}

// logSubmission records the message log: fire-and-forget to the backend,
// mirrored locally. Failures are logged, never surfaced to the user.
func (p *Pipeline) logSubmission(action *domain.PendingAction, payload Payload, result *domain.SubmissionResult) {
	playID := ""
	if result.Play != nil {
		playID = result.Play.PlayID
	}
	rec := backend.MessageLog{
		MessageType:     string(action.Kind),
		GameID:          action.GameID,
		PlayID:          playID,
		MessageID:       payload.MessageID,
		MessageLocation: action.LocationID,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
		defer cancel()

		if err := p.writer.LogMessage(ctx, rec); err != nil {
			p.logger.Warn("message log forward failed", "game", rec.GameID, "err", err)
		}
		if p.store != nil {
			_, err := p.store.Append(ctx, audit.Record{
				MessageType: rec.MessageType,
				GameID:      rec.GameID,
				PlayID:      rec.PlayID,
				MessageID:   rec.MessageID,
				Location:    rec.MessageLocation,
			})
			if err != nil {
				p.logger.Warn("local message log write failed", "game", rec.GameID, "err", err)
			}
		}
	}()
}
