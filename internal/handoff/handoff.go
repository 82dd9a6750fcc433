// Package handoff persists suspended editing sessions so pending changes
// survive a process exit or a hop to another screen. Blobs are opaque to
// this package and keyed by workout id; one blob per workout, a second
// save overwrites the first. Every backend enforces a grace period:
// blobs older than it are treated as absent, so a stale session from
// last week never resurfaces as pending edits.
package handoff

import (
	"context"
	"errors"
	"time"
)

// DefaultGrace is how long a suspended session stays resumable unless
// configured otherwise.
const DefaultGrace = 60 * time.Second

// ErrNoSession is returned by Load when no blob exists for the workout,
// or the one that exists has outlived the grace period.
var ErrNoSession = errors.New("no suspended session")

// Store is a durable keyed blob store for suspended sessions.
type Store interface {
	// Save stores the blob for a workout, replacing any previous one.
	Save(ctx context.Context, workoutID int64, blob []byte) error
	// Load returns the blob for a workout, or ErrNoSession.
	Load(ctx context.Context, workoutID int64) ([]byte, error)
	// Delete removes the blob for a workout. Deleting a missing blob is
	// not an error.
	Delete(ctx context.Context, workoutID int64) error
	Close() error
}
