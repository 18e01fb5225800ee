package audit

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"), slog.Default())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndForGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Append(ctx, Record{
		MessageType: "OFFENSE_NUMBER",
		GameID:      "g1",
		PlayID:      "p1",
		MessageID:   "m1",
		Location:    "thread-1",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated record ID")
	}

	if _, err := s.Append(ctx, Record{MessageType: "DEFENSE_NUMBER", GameID: "g2"}); err != nil {
		t.Fatalf("append second: %v", err)
	}

	recs, err := s.ForGame(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("for game: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record for g1, got %d", len(recs))
	}
	if recs[0].MessageType != "OFFENSE_NUMBER" || recs[0].PlayID != "p1" {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := Record{MessageType: "OFFENSE_NUMBER", GameID: "g1", CreatedAt: time.Now().Add(-48 * time.Hour)}
	if _, err := s.Append(ctx, old); err != nil {
		t.Fatalf("append old: %v", err)
	}
	if _, err := s.Append(ctx, Record{MessageType: "DEFENSE_NUMBER", GameID: "g1"}); err != nil {
		t.Fatalf("append fresh: %v", err)
	}

	removed, err := s.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned record, got %d", removed)
	}

	recs, err := s.ForGame(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("for game: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 remaining record, got %d", len(recs))
	}
}
