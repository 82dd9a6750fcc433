package handoff

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T, grace time.Duration) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(t.TempDir(), grace)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countRows(t *testing.T, s *SQLiteStore) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM suspended_sessions`).Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return n
}

// TestSQLiteRoundTrip verifies that a saved blob comes back byte for
// byte and is gone after Delete.
func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Minute)

	blob := []byte(`{"workout_id":7,"entries":3}`)
	if err := s.Save(ctx, 7, blob); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("Load = %q, want %q", got, blob)
	}

	if err := s.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, 7); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load after delete: %v, want ErrNoSession", err)
	}
}

// TestSQLiteLoadMissing verifies the sentinel for an unknown workout.
func TestSQLiteLoadMissing(t *testing.T) {
	s := openTestStore(t, time.Minute)
	if _, err := s.Load(context.Background(), 99); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load = %v, want ErrNoSession", err)
	}
}

// TestSQLiteDeleteMissing verifies that deleting an absent session is
// not an error; callers clean up unconditionally.
func TestSQLiteDeleteMissing(t *testing.T) {
	s := openTestStore(t, time.Minute)
	if err := s.Delete(context.Background(), 99); err != nil {
		t.Errorf("Delete of absent session: %v", err)
	}
}

// TestSQLiteSaveOverwrites verifies that suspending the same workout
// again replaces the previous blob instead of accumulating rows.
func TestSQLiteSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Minute)

	if err := s.Save(ctx, 7, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, 7, []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("Load = %q, want %q", got, "second")
	}
	if n := countRows(t, s); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

// TestSQLiteGraceExpiry verifies that a blob older than the grace
// period reads as absent and the stale row is removed on that read.
func TestSQLiteGraceExpiry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 25*time.Millisecond)

	if err := s.Save(ctx, 7, []byte("stale soon")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)

	if _, err := s.Load(ctx, 7); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load of expired session: %v, want ErrNoSession", err)
	}
	if n := countRows(t, s); n != 0 {
		t.Errorf("rows = %d after expired load, want 0", n)
	}
}

// TestSQLiteSweepOnSave verifies that saving sweeps other workouts'
// expired rows, keeping the file from growing unbounded.
func TestSQLiteSweepOnSave(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 25*time.Millisecond)

	if err := s.Save(ctx, 1, []byte("old")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)
	if err := s.Save(ctx, 2, []byte("new")); err != nil {
		t.Fatal(err)
	}

	if n := countRows(t, s); n != 1 {
		t.Errorf("rows = %d after sweep, want 1", n)
	}
	if _, err := s.Load(ctx, 1); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load(1) = %v, want ErrNoSession", err)
	}
	if _, err := s.Load(ctx, 2); err != nil {
		t.Errorf("Load(2): %v", err)
	}
}

// TestSQLiteSurvivesReopen verifies the point of the file-backed store:
// a blob saved before a process exit is still there after reopening.
func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := OpenSQLite(dir, time.Minute)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s1.Save(ctx, 7, []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := OpenSQLite(dir, time.Minute)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("Load = %q, want %q", got, "persisted")
	}
}

// TestSQLiteDefaultGrace verifies the fallback when no grace is
// configured.
func TestSQLiteDefaultGrace(t *testing.T) {
	s := openTestStore(t, 0)
	if s.grace != DefaultGrace {
		t.Errorf("grace = %v, want %v", s.grace, DefaultGrace)
	}
}
