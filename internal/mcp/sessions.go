package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/meltforce/repbook/internal/editor"
	"github.com/meltforce/repbook/internal/handoff"
)

var errUnknownSession = errors.New("unknown session token, call workout_edit_begin first")

// managedSession pairs an editing session with the mutex that serializes
// tool calls against it. Sessions tolerate no concurrent writers;
// transports may pipeline requests, so every handler takes the lock.
type managedSession struct {
	token     string
	workoutID int64
	mu        sync.Mutex
	session   *editor.Session
}

// sessionManager hands out editing sessions keyed by opaque tokens, at
// most one live session per workout. Beginning a workout that already
// has one returns the existing session and token, so begin is idempotent
// and two callers cannot build diverging ledgers for the same workout.
type sessionManager struct {
	mu        sync.Mutex
	byToken   map[string]*managedSession
	byWorkout map[int64]*managedSession
}

func newSessionManager() *sessionManager {
	return &sessionManager{
		byToken:   make(map[string]*managedSession),
		byWorkout: make(map[int64]*managedSession),
	}
}

// begin opens (or re-serves) the editing session for a workout. A
// suspended session within the grace period is restored and reconciled
// by editor.Open.
func (m *sessionManager) begin(ctx context.Context, store editor.Store, bridge handoff.Store, workoutID int64) (*managedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.byWorkout[workoutID]; ok {
		return ms, nil
	}

	sess, err := editor.Open(ctx, store, bridge, workoutID)
	if err != nil {
		return nil, err
	}
	ms := &managedSession{
		token:     uuid.NewString(),
		workoutID: workoutID,
		session:   sess,
	}
	m.byToken[ms.token] = ms
	m.byWorkout[workoutID] = ms
	return ms, nil
}

// get returns the session for a token.
func (m *sessionManager) get(token string) (*managedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.byToken[token]
	if !ok {
		return nil, errUnknownSession
	}
	return ms, nil
}
