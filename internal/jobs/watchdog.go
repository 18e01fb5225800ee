package jobs

import (
	"context"
	"log/slog"
	"time"

	"gridbot/internal/health"
)

// Gateway is the slice of the Discord channel the watchdog needs.
type Gateway interface {
	Connected() bool
	Reconnect() error
}

// WatchdogConfig configures the gateway restart watchdog.
type WatchdogConfig struct {
	Interval  time.Duration
	Tolerance int // consecutive disconnected checks before a restart
	Gateway   Gateway
	Tracker   *health.Tracker
	Logger    *slog.Logger
}

// Watchdog restarts the Discord session when it stays disconnected for
// several consecutive checks. discordgo reconnects on its own for normal
// gateway drops; the watchdog only catches sessions that wedge.
type Watchdog struct {
	interval  time.Duration
	tolerance int
	gateway   Gateway
	tracker   *health.Tracker
	logger    *slog.Logger

	misses int
}

const watchdogJob = "watchdog"

// NewWatchdog creates the watchdog and registers it with the tracker.
func NewWatchdog(cfg WatchdogConfig) *Watchdog {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tracker != nil {
		cfg.Tracker.Register(watchdogJob, 3*interval)
	}
	return &Watchdog{
		interval:  interval,
		tolerance: tolerance,
		gateway:   cfg.Gateway,
		tracker:   cfg.Tracker,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info("watchdog started", "interval", w.interval, "tolerance", w.tolerance)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watchdog) check() {
	if w.tracker != nil {
		defer w.tracker.Beat(watchdogJob)
	}

	if w.gateway.Connected() {
		w.misses = 0
		return
	}

	w.misses++
	w.logger.Warn("gateway disconnected", "consecutive", w.misses)
	if w.misses < w.tolerance {
		return
	}

	w.logger.Error("gateway wedged, restarting session", "consecutive", w.misses)
	if err := w.gateway.Reconnect(); err != nil {
		w.logger.Error("gateway restart failed", "err", err)
		return
	}
	w.misses = 0
	w.logger.Info("gateway session restarted")
}
