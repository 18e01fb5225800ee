package health

import (
	"sync"
	"time"
)

// JobStatus is one background job's liveness verdict at sampling time.
type JobStatus struct {
	Status   Status    `json:"status"`
	LastBeat time.Time `json:"lastBeat"`
}

type jobRecord struct {
	staleAfter time.Duration
	lastBeat   time.Time
}

// Tracker watches background jobs through their heartbeats. A job that has
// not beaten within its stale window is DOWN.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*jobRecord
	now  func() time.Time
}

// NewTracker creates an empty job tracker.
func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*jobRecord),
		now:  time.Now,
	}
}

// Register adds a job. staleAfter should be at least twice the job's beat
// interval so a single delayed tick does not flap the composite status.
func (t *Tracker) Register(name string, staleAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[name] = &jobRecord{staleAfter: staleAfter, lastBeat: t.now()}
}

// Beat records that the named job completed a cycle.
func (t *Tracker) Beat(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.jobs[name]; ok {
		rec.lastBeat = t.now()
	}
}

// Statuses snapshots every registered job's liveness.
func (t *Tracker) Statuses() map[string]JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make(map[string]JobStatus, len(t.jobs))
	for name, rec := range t.jobs {
		st := StatusUp
		if now.Sub(rec.lastBeat) > rec.staleAfter {
			st = StatusDown
		}
		out[name] = JobStatus{Status: st, LastBeat: rec.lastBeat}
	}
	return out
}
