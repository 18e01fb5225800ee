package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gridbot/internal/domain"
)

// TransportStatus is the gateway connectivity verdict.
type TransportStatus struct {
	Status    Status `json:"status"`
	Connected bool   `json:"connected"`
}

// Snapshot is one composite health sample. The composite is UP only when
// every component is UP.
type Snapshot struct {
	Status    Status               `json:"status"`
	Jobs      map[string]JobStatus `json:"jobs"`
	Memory    MemoryStatus         `json:"memory"`
	Disk      DiskStatus           `json:"diskSpace"`
	Transport TransportStatus      `json:"transport"`
	SampledAt time.Time            `json:"sampledAt"`
}

// Config configures the supervisor. Zero values get working defaults.
type Config struct {
	Tracker   *Tracker
	Transport domain.Transport
	Logger    *slog.Logger

	Interval      time.Duration
	MemThreshold  float64 // free-memory ratio below which memory is DOWN
	DiskThreshold float64 // free-disk ratio below which disk is DOWN
	MemInfoPath   string
	DiskPath      string
}

// Supervisor samples all health components on a fixed interval and keeps
// the latest snapshot for the /health endpoint.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	latest Snapshot
}

// NewSupervisor creates a supervisor. Call Run to start sampling.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MemThreshold <= 0 {
		cfg.MemThreshold = 0.10
	}
	if cfg.DiskThreshold <= 0 {
		cfg.DiskThreshold = 0.10
	}
	if cfg.MemInfoPath == "" {
		cfg.MemInfoPath = "/proc/meminfo"
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Supervisor{cfg: cfg, logger: logger}
	s.latest = Snapshot{Status: StatusDown, SampledAt: time.Now()}
	return s
}

// Run samples until ctx is cancelled. The first sample happens immediately
// so /health never serves the placeholder for a full interval.
func (s *Supervisor) Run(ctx context.Context) {
	s.store(s.Sample())

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store(s.Sample())
		}
	}
}

// Snapshot returns the latest sample.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Supervisor) store(snap Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if snap.Status == StatusDown {
		s.logger.Warn("health sample is DOWN",
			"memory", snap.Memory.Status,
			"disk", snap.Disk.Status,
			"transport", snap.Transport.Status,
		)
	}
}

// Sample takes one composite sample. A panic inside any probe becomes a
// DOWN snapshot rather than a crash or a false UP.
func (s *Supervisor) Sample() (snap Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic during health sampling", "panic", rec)
			snap = Snapshot{Status: StatusDown, SampledAt: time.Now()}
		}
	}()

	snap = Snapshot{
		Memory:    sampleMemory(s.cfg.MemInfoPath, s.cfg.MemThreshold),
		Disk:      sampleDisk(s.cfg.DiskPath, s.cfg.DiskThreshold),
		SampledAt: time.Now(),
	}

	snap.Transport = TransportStatus{Status: StatusDown}
	if s.cfg.Transport != nil && s.cfg.Transport.Connected() {
		snap.Transport = TransportStatus{Status: StatusUp, Connected: true}
	}

	snap.Jobs = map[string]JobStatus{}
	if s.cfg.Tracker != nil {
		snap.Jobs = s.cfg.Tracker.Statuses()
	}

	snap.Status = StatusUp
	if snap.Memory.Status == StatusDown ||
		snap.Disk.Status == StatusDown ||
		snap.Transport.Status == StatusDown {
		snap.Status = StatusDown
	}
	for _, job := range snap.Jobs {
		if job.Status == StatusDown {
			snap.Status = StatusDown
		}
	}
	return snap
}
