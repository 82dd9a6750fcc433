package editor

import (
	"errors"
	"fmt"

	"github.com/meltforce/repbook/internal/models"
)

// Validation errors returned by Session mutation methods. These are
// raised before anything touches the ledger, so a rejected call leaves
// the session exactly as it was.
var (
	ErrNoSuchSet       = errors.New("no such set in this workout")
	ErrNoSuchExercise  = errors.New("no such exercise in this workout")
	ErrSetDeleted      = errors.New("set is marked for deletion")
	ErrExerciseDeleted = errors.New("exercise is marked for deletion")
	ErrPendingParent   = errors.New("exercise is not saved yet, save changes before adding sets to it")
	ErrIntensityRange  = errors.New("intensity must be between 1 and 5")
	ErrEndBeforeStart  = errors.New("workout cannot end before it starts")
	ErrEmptyPatch      = errors.New("no fields to change")
)

// ErrStaleSnapshot means a commit went through but the follow-up fetch of
// the fresh workout failed. Pending changes are gone (they were saved);
// the local view is just out of date until the next successful fetch.
var ErrStaleSnapshot = errors.New("changes were saved but the refreshed workout could not be loaded")

// CommitStage identifies one of the fixed stages changes are applied in.
// Ordering avoids referencing parents that do not exist yet and avoids
// deleting parents before their children were dealt with.
type CommitStage int

const (
	StageHeader CommitStage = iota + 1
	StageSetChanges
	StageSetCreates
	StageExerciseCreates
	StageExerciseRemovals
)

func (s CommitStage) String() string {
	switch s {
	case StageHeader:
		return "header"
	case StageSetChanges:
		return "set changes"
	case StageSetCreates:
		return "new sets"
	case StageExerciseCreates:
		return "new exercises"
	case StageExerciseRemovals:
		return "exercise removals"
	}
	return fmt.Sprintf("stage %d", int(s))
}

// CommitError reports the first remote call that failed during a commit
// attempt. The ledger is left fully intact when one is returned, so the
// caller may retry the whole commit or discard.
type CommitError struct {
	Stage  CommitStage
	Op     string
	Target models.EntityID
	Err    error
}

func (e *CommitError) Error() string {
	if e.Target.IsZero() {
		return fmt.Sprintf("commit failed at %s: %s: %v", e.Stage, e.Op, e.Err)
	}
	return fmt.Sprintf("commit failed at %s: %s %s: %v", e.Stage, e.Op, e.Target, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Category names the kind of change that failed in user terms: "header",
// "set" or "exercise".
func (e *CommitError) Category() string {
	switch e.Stage {
	case StageHeader:
		return "header"
	case StageSetChanges, StageSetCreates:
		return "set"
	default:
		return "exercise"
	}
}

// AsCommitError unwraps err to a CommitError if one is in the chain.
func AsCommitError(err error) (*CommitError, bool) {
	var ce *CommitError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
