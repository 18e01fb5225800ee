// Package jobs holds the bot's background loops: the backend heartbeat and
// the gateway restart watchdog. Both report into the health tracker so a
// wedged loop shows up as a DOWN job rather than silence.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"gridbot/internal/health"
)

// Pinger is the slice of the backend client the heartbeat needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HeartbeatConfig configures the backend heartbeat loop.
type HeartbeatConfig struct {
	Interval time.Duration
	Backend  Pinger
	Tracker  *health.Tracker
	Logger   *slog.Logger
}

// Heartbeat pings the game backend on a fixed interval. The beat is
// recorded whether or not the ping succeeds; the loop being alive and the
// backend being reachable are separate facts.
type Heartbeat struct {
	interval time.Duration
	backend  Pinger
	tracker  *health.Tracker
	logger   *slog.Logger
}

const heartbeatJob = "heartbeat"

// NewHeartbeat creates the heartbeat loop and registers it with the tracker.
func NewHeartbeat(cfg HeartbeatConfig) *Heartbeat {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tracker != nil {
		cfg.Tracker.Register(heartbeatJob, 3*interval)
	}
	return &Heartbeat{
		interval: interval,
		backend:  cfg.Backend,
		tracker:  cfg.Tracker,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	h.logger.Info("heartbeat started", "interval", h.interval)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("heartbeat stopped")
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

func (h *Heartbeat) tick(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := h.backend.Ping(pingCtx); err != nil {
		h.logger.Warn("backend ping failed", "err", err)
	} else {
		h.logger.Debug("backend ping ok")
	}

	if h.tracker != nil {
		h.tracker.Beat(heartbeatJob)
	}
}
