package health

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeMeminfo(t *testing.T, totalKB, availableKB int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meminfo")
	content := fmt.Sprintf("MemTotal:       %d kB\nMemFree:        %d kB\nMemAvailable:   %d kB\n",
		totalKB, availableKB, availableKB)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write meminfo: %v", err)
	}
	return path
}

type fakeTransport struct{ up bool }

func (f fakeTransport) Connected() bool { return f.up }

func TestSampleMemoryHealthy(t *testing.T) {
	path := writeMeminfo(t, 16000000, 8000000)
	got := sampleMemory(path, 0.10)
	if got.Status != StatusUp {
		t.Fatalf("expected UP with 50%% free, got %+v", got)
	}
	if got.FreeRatio < 0.49 || got.FreeRatio > 0.51 {
		t.Fatalf("unexpected free ratio: %f", got.FreeRatio)
	}
}

func TestSampleMemoryLowIsDown(t *testing.T) {
	path := writeMeminfo(t, 16000000, 800000) // 5% free
	if got := sampleMemory(path, 0.10); got.Status != StatusDown {
		t.Fatalf("expected DOWN with 5%% free, got %+v", got)
	}
}

func TestSampleMemoryUnreadableIsDown(t *testing.T) {
	got := sampleMemory(filepath.Join(t.TempDir(), "missing"), 0.10)
	if got.Status != StatusDown {
		t.Fatalf("unreadable meminfo must be DOWN, got %+v", got)
	}
	if got.Detail == "" {
		t.Fatal("expected a detail explaining the failure")
	}
}

func TestSampleDisk(t *testing.T) {
	got := sampleDisk(t.TempDir(), 0.000001)
	if got.Status != StatusUp {
		t.Fatalf("expected UP on an almost-zero threshold, got %+v", got)
	}
	if got := sampleDisk(t.TempDir(), 1.0); got.Status != StatusDown {
		t.Fatalf("expected DOWN on an impossible threshold, got %+v", got)
	}
}

func TestTrackerLiveness(t *testing.T) {
	tr := NewTracker()
	base := time.Now()
	tr.now = func() time.Time { return base }

	tr.Register("heartbeat", time.Minute)
	tr.Beat("heartbeat")

	if st := tr.Statuses()["heartbeat"]; st.Status != StatusUp {
		t.Fatalf("fresh beat must be UP, got %+v", st)
	}

	tr.now = func() time.Time { return base.Add(2 * time.Minute) }
	if st := tr.Statuses()["heartbeat"]; st.Status != StatusDown {
		t.Fatalf("stale job must be DOWN, got %+v", st)
	}

	tr.Beat("heartbeat")
	if st := tr.Statuses()["heartbeat"]; st.Status != StatusUp {
		t.Fatalf("beat must recover the job, got %+v", st)
	}
}

func TestCompositeAllHealthy(t *testing.T) {
	tr := NewTracker()
	tr.Register("heartbeat", time.Minute)
	tr.Beat("heartbeat")

	s := NewSupervisor(Config{
		Tracker:     tr,
		Transport:   fakeTransport{up: true},
		MemInfoPath: writeMeminfo(t, 16000000, 8000000),
		DiskPath:    t.TempDir(),
	})

	snap := s.Sample()
	if snap.Status != StatusUp {
		t.Fatalf("expected composite UP, got %+v", snap)
	}
}

func TestCompositeLowMemoryIsDown(t *testing.T) {
	s := NewSupervisor(Config{
		Transport:   fakeTransport{up: true},
		MemInfoPath: writeMeminfo(t, 16000000, 400000), // 2.5% free
		DiskPath:    t.TempDir(),
	})

	snap := s.Sample()
	if snap.Status != StatusDown {
		t.Fatalf("low memory must pull the composite DOWN, got %+v", snap)
	}
	if snap.Memory.Status != StatusDown {
		t.Fatalf("memory component must be DOWN, got %+v", snap.Memory)
	}
	if snap.Disk.Status != StatusUp {
		t.Fatalf("disk component should stay UP, got %+v", snap.Disk)
	}
}

func TestCompositeDisconnectedTransportIsDown(t *testing.T) {
	s := NewSupervisor(Config{
		Transport:   fakeTransport{up: false},
		MemInfoPath: writeMeminfo(t, 16000000, 8000000),
		DiskPath:    t.TempDir(),
	})

	if snap := s.Sample(); snap.Status != StatusDown {
		t.Fatalf("disconnected transport must pull the composite DOWN, got %+v", snap)
	}
}

func TestCompositeStaleJobIsDown(t *testing.T) {
	tr := NewTracker()
	base := time.Now()
	tr.now = func() time.Time { return base }
	tr.Register("watchdog", time.Minute)
	tr.now = func() time.Time { return base.Add(5 * time.Minute) }

	s := NewSupervisor(Config{
		Tracker:     tr,
		Transport:   fakeTransport{up: true},
		MemInfoPath: writeMeminfo(t, 16000000, 8000000),
		DiskPath:    t.TempDir(),
	})

	if snap := s.Sample(); snap.Status != StatusDown {
		t.Fatalf("stale job must pull the composite DOWN, got %+v", snap)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := NewSupervisor(Config{
		Transport:   fakeTransport{up: true},
		MemInfoPath: writeMeminfo(t, 16000000, 8000000),
		DiskPath:    t.TempDir(),
	})
	s.store(s.Sample())

	srv := NewServer(":0", s, nil)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Status != StatusUp {
		t.Fatalf("expected UP body, got %+v", snap)
	}
}

func TestHealthEndpointDownIs503(t *testing.T) {
	s := NewSupervisor(Config{
		Transport:   fakeTransport{up: false},
		MemInfoPath: writeMeminfo(t, 16000000, 8000000),
		DiskPath:    t.TempDir(),
	})
	s.store(s.Sample())

	srv := NewServer(":0", s, nil)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 503 {
		t.Fatalf("expected 503 for DOWN, got %d", rec.Code)
	}
}
