package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gridbot/internal/health"
)

type fakePinger struct {
	calls atomic.Int32
	err   error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls.Add(1)
	return f.err
}

type fakeGateway struct {
	connected  bool
	reconnects int
	failNext   bool
}

func (f *fakeGateway) Connected() bool { return f.connected }
func (f *fakeGateway) Reconnect() error {
	f.reconnects++
	if f.failNext {
		return errors.New("gateway busy")
	}
	f.connected = true
	return nil
}

func TestHeartbeatBeatsEvenWhenPingFails(t *testing.T) {
	tracker := health.NewTracker()
	pinger := &fakePinger{err: errors.New("backend down")}
	h := NewHeartbeat(HeartbeatConfig{
		Interval: time.Minute,
		Backend:  pinger,
		Tracker:  tracker,
	})

	h.tick(context.Background())

	if pinger.calls.Load() != 1 {
		t.Fatalf("expected 1 ping, got %d", pinger.calls.Load())
	}
	if st := tracker.Statuses()["heartbeat"]; st.Status != health.StatusUp {
		t.Fatalf("loop liveness must not depend on ping outcome, got %+v", st)
	}
}

func TestWatchdogRestartsAfterTolerance(t *testing.T) {
	gw := &fakeGateway{connected: false}
	w := NewWatchdog(WatchdogConfig{
		Interval:  time.Second,
		Tolerance: 3,
		Gateway:   gw,
		Tracker:   health.NewTracker(),
	})

	w.check()
	w.check()
	if gw.reconnects != 0 {
		t.Fatalf("restart before tolerance, after %d checks", 2)
	}

	w.check()
	if gw.reconnects != 1 {
		t.Fatalf("expected restart on check %d, got %d restarts", 3, gw.reconnects)
	}
	if !gw.connected {
		t.Fatal("gateway should be reconnected")
	}

	// A healthy gateway resets the miss counter.
	w.check()
	if w.misses != 0 {
		t.Fatalf("misses should reset while connected, got %d", w.misses)
	}
}

func TestWatchdogKeepsTryingAfterFailedRestart(t *testing.T) {
	gw := &fakeGateway{connected: false, failNext: true}
	w := NewWatchdog(WatchdogConfig{
		Interval:  time.Second,
		Tolerance: 1,
		Gateway:   gw,
	})

	w.check()
	if gw.reconnects != 1 {
		t.Fatalf("expected a restart attempt, got %d", gw.reconnects)
	}

	// The failed restart leaves the session wedged; the next check tries again.
	w.check()
	if gw.reconnects != 2 {
		t.Fatalf("expected a second restart attempt, got %d", gw.reconnects)
	}
}

func TestHeartbeatRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHeartbeat(HeartbeatConfig{
		Interval: 10 * time.Millisecond,
		Backend:  &fakePinger{},
	})

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop on cancel")
	}
}
