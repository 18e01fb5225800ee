// Package audit keeps a local mirror of submission message logs so that
// every backend write stays traceable even when the fire-and-forget
// forwarding to the backend fails.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one logged submission.
type Record struct {
	ID          string
	MessageType string
	GameID      string
	PlayID      string
	MessageID   string
	Location    string
	CreatedAt   time.Time
}

// Store persists records in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (and migrates) the audit database at dbPath.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS message_log (
		id            TEXT PRIMARY KEY,
		message_type  TEXT NOT NULL,
		game_id       TEXT NOT NULL,
		play_id       TEXT,
		message_id    TEXT,
		location      TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_message_log_game ON message_log(game_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes one record, assigning a fresh ID when none is set.
func (s *Store) Append(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_log (id, message_type, game_id, play_id, message_id, location, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MessageType, rec.GameID, rec.PlayID, rec.MessageID, rec.Location, rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("append message log: %w", err)
	}
	return rec.ID, nil
}

// ForGame returns the most recent records for one game, newest first.
func (s *Store) ForGame(ctx context.Context, gameID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_type, game_id, play_id, message_id, location, created_at
		 FROM message_log WHERE game_id = ? ORDER BY created_at DESC LIMIT ?`,
		gameID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var playID, messageID, location sql.NullString
		if err := rows.Scan(&r.ID, &r.MessageType, &r.GameID, &playID, &messageID, &location, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.PlayID = playID.String
		r.MessageID = messageID.String
		r.Location = location.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Prune deletes records older than maxAge and returns how many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM message_log WHERE created_at < ?`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
