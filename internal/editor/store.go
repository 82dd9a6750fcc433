package editor

import (
	"context"

	"github.com/meltforce/repbook/internal/models"
)

// Store is the remote workout store an editing session runs against.
// Calls carry no cross-call atomicity; the commit coordinator's staging
// and partial-failure reporting exist to compensate for that.
//
// Implementations: remote.Client over HTTP, fakes in tests.
type Store interface {
	FetchWorkout(ctx context.Context, workoutID int64) (*models.WorkoutSnapshot, error)
	PatchWorkoutHeader(ctx context.Context, workoutID int64, patch models.HeaderPatch) error

	UpdateSet(ctx context.Context, setID int64, patch models.SetPatch) error
	DeleteSet(ctx context.Context, setID int64) error
	CreateSet(ctx context.Context, instanceID int64, fields models.SetFields) (*models.Set, error)

	DeleteExerciseInstance(ctx context.Context, instanceID int64) error
	ReplaceExerciseInstance(ctx context.Context, instanceID, definitionID int64) error
	CreateExerciseInstance(ctx context.Context, workoutID, definitionID int64) (*models.ExerciseInstance, error)

	FetchExerciseDefinition(ctx context.Context, definitionID int64) (*models.ExerciseDefinition, error)
}
