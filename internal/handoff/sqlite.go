package handoff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps suspended sessions in a local SQLite file. This is
// the default backend: no extra service, survives restarts, and the
// grace period is enforced on read with expired rows swept on write.
type SQLiteStore struct {
	db    *sql.DB
	grace time.Duration
}

// OpenSQLite opens (or creates) the session database at dir/sessions.db.
// A grace of zero or less falls back to DefaultGrace.
func OpenSQLite(dir string, grace time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir %s: %w", dir, err)
	}
	if grace <= 0 {
		grace = DefaultGrace
	}

	dbPath := filepath.Join(dir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS suspended_sessions (
		workout_id  INTEGER PRIMARY KEY,
		blob        BLOB NOT NULL,
		saved_at_ms INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session table: %w", err)
	}

	return &SQLiteStore{db: db, grace: grace}, nil
}

// Save stores the blob for a workout, replacing any previous one, and
// sweeps rows that have outlived the grace period.
func (s *SQLiteStore) Save(ctx context.Context, workoutID int64, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO suspended_sessions (workout_id, blob, saved_at_ms) VALUES (?, ?, ?)`,
		workoutID, blob, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving session blob: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM suspended_sessions WHERE saved_at_ms < ?`,
		time.Now().Add(-s.grace).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sweeping expired sessions: %w", err)
	}
	return nil
}

// Load returns the blob for a workout. A row older than the grace period
// counts as absent and is deleted on the spot.
func (s *SQLiteStore) Load(ctx context.Context, workoutID int64) ([]byte, error) {
	var blob []byte
	var savedAtMS int64
	err := s.db.QueryRowContext(ctx,
		`SELECT blob, saved_at_ms FROM suspended_sessions WHERE workout_id = ?`,
		workoutID,
	).Scan(&blob, &savedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading session blob: %w", err)
	}
	savedAt := time.UnixMilli(savedAtMS)
	if time.Since(savedAt) > s.grace {
		if err := s.Delete(ctx, workoutID); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return blob, nil
}

// Delete removes the blob for a workout if one exists.
func (s *SQLiteStore) Delete(ctx context.Context, workoutID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM suspended_sessions WHERE workout_id = ?`, workoutID,
	)
	if err != nil {
		return fmt.Errorf("deleting session blob: %w", err)
	}
	return nil
}

// Close closes the session database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
