package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meltforce/repbook/internal/handoff"
	"github.com/meltforce/repbook/internal/models"
)

// Session is one user's pending-edit buffer for one workout. It holds
// the last fetched snapshot and a ledger of uncommitted changes, and
// serves merged projections of the two. Nothing reaches the remote store
// until Save. A session is not safe for concurrent use; callers
// serialize access per session.
type Session struct {
	workoutID int64
	store     Store
	bridge    handoff.Store
	snap      *models.WorkoutSnapshot
	ledger    *Ledger
}

// Open fetches the workout and starts an editing session for it. If the
// handoff store holds a suspended session for this workout, its ledger
// is restored and reconciled against the fresh snapshot, silently
// dropping entries whose targets disappeared server-side. A blob that
// cannot be decoded is deleted and ignored rather than blocking the
// workout. bridge may be nil, in which case suspended sessions are not
// kept anywhere and an interruption loses pending changes.
func Open(ctx context.Context, store Store, bridge handoff.Store, workoutID int64) (*Session, error) {
	snap, err := store.FetchWorkout(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("fetching workout %d: %w", workoutID, err)
	}
	s := &Session{
		workoutID: workoutID,
		store:     store,
		bridge:    bridge,
		snap:      snap,
		ledger:    NewLedger(),
	}
	if bridge == nil {
		return s, nil
	}

	data, err := bridge.Load(ctx, workoutID)
	if errors.Is(err, handoff.ErrNoSession) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading suspended session for workout %d: %w", workoutID, err)
	}
	blob, err := decodeLedger(data)
	if err != nil || blob.WorkoutID != workoutID {
		_ = bridge.Delete(ctx, workoutID)
		return s, nil
	}
	s.ledger = reconcile(snap, blob.ledger())
	return s, nil
}

// WorkoutID returns the id of the workout under edit.
func (s *Session) WorkoutID() int64 { return s.workoutID }

// HasPendingChanges reports whether anything is waiting to be saved.
func (s *Session) HasPendingChanges() bool { return !s.ledger.IsEmpty() }

// PendingCount returns the number of pending ledger entries.
func (s *Session) PendingCount() int { return s.ledger.Len() }

// Workout returns the workout header with pending changes applied.
func (s *Session) Workout() models.Workout {
	return ProjectWorkout(s.snap, s.ledger)
}

// Exercises returns the exercise list with pending changes applied.
func (s *Session) Exercises() []models.ExerciseInstance {
	return ProjectExercises(s.snap, s.ledger)
}

// Sets returns one exercise's sets with pending changes applied.
func (s *Session) Sets(instanceID models.EntityID) ([]models.Set, error) {
	if err := s.checkInstance(instanceID); err != nil {
		return nil, err
	}
	return ProjectSets(s.snap, s.ledger, instanceID), nil
}

// View returns the whole workout with pending changes applied.
func (s *Session) View() models.WorkoutSnapshot {
	return Project(s.snap, s.ledger)
}

// EditSet stages a field change for a set. The patch replaces any
// earlier pending edit for the same set outright, it does not stack.
func (s *Session) EditSet(setID models.EntityID, patch models.SetPatch) error {
	if patch.IsZero() {
		return ErrEmptyPatch
	}
	if err := s.checkSet(setID); err != nil {
		return err
	}
	s.ledger.RecordSetEdit(setID, patch)
	return nil
}

// DeleteSet stages removal of a set, discarding any pending edit for it.
func (s *Session) DeleteSet(setID models.EntityID) error {
	if err := s.checkSet(setID); err != nil {
		return err
	}
	s.ledger.RecordSetDelete(setID)
	return nil
}

// AddSet stages a new set at the end of an exercise and returns its
// pending id. The exercise must already be saved server-side; a pending
// exercise cannot take sets until after a Save assigns it a real id.
func (s *Session) AddSet(instanceID models.EntityID, fields models.SetFields) (models.EntityID, error) {
	if instanceID.IsPending() {
		if c := s.findExerciseCreate(instanceID); c == nil {
			return models.EntityID{}, ErrNoSuchExercise
		}
		return models.EntityID{}, ErrPendingParent
	}
	if err := s.checkInstance(instanceID); err != nil {
		return models.EntityID{}, err
	}
	return s.ledger.RecordSetCreate(instanceID, fields), nil
}

// DeleteExercise stages removal of an exercise instance together with
// everything pending under it.
func (s *Session) DeleteExercise(instanceID models.EntityID) error {
	if err := s.checkInstance(instanceID); err != nil {
		return err
	}
	s.ledger.RecordExerciseDelete(instanceID)
	return nil
}

// ReplaceExercise stages swapping an instance's exercise for another
// definition from the catalog. Logged sets stay attached through the
// swap.
func (s *Session) ReplaceExercise(ctx context.Context, instanceID models.EntityID, definitionID int64) error {
	if err := s.checkInstance(instanceID); err != nil {
		return err
	}
	def, err := s.store.FetchExerciseDefinition(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("fetching exercise definition %d: %w", definitionID, err)
	}
	s.ledger.RecordExerciseReplace(instanceID, *def)
	return nil
}

// AddExercise stages a new exercise instance at the end of the workout
// and returns its pending id.
func (s *Session) AddExercise(ctx context.Context, definitionID int64) (models.EntityID, error) {
	def, err := s.store.FetchExerciseDefinition(ctx, definitionID)
	if err != nil {
		return models.EntityID{}, fmt.Errorf("fetching exercise definition %d: %w", definitionID, err)
	}
	return s.ledger.RecordExerciseCreate(*def), nil
}

// UpdateHeader stages changes to the workout header. Successive patches
// merge field by field, the latest write per field winning.
func (s *Session) UpdateHeader(patch models.HeaderPatch) error {
	if patch.IsZero() {
		return ErrEmptyPatch
	}
	if patch.Intensity != nil && (*patch.Intensity < 1 || *patch.Intensity > 5) {
		return ErrIntensityRange
	}
	projected := s.Workout()
	patch.ApplyTo(&projected)
	if !projected.StartedAt.IsZero() && !projected.EndedAt.IsZero() && projected.EndedAt.Before(projected.StartedAt) {
		return ErrEndBeforeStart
	}
	s.ledger.RecordHeaderPatch(patch)
	return nil
}

// Suspend durably stores the current ledger so the session survives a
// process exit or a switch to another screen. A later Open within the
// handoff grace period restores it. Suspending again overwrites the
// previous blob for this workout.
func (s *Session) Suspend(ctx context.Context) error {
	if s.bridge == nil {
		return nil
	}
	data, err := encodeLedger(s.workoutID, s.ledger, time.Now())
	if err != nil {
		return err
	}
	if err := s.bridge.Save(ctx, s.workoutID, data); err != nil {
		return fmt.Errorf("suspending session for workout %d: %w", s.workoutID, err)
	}
	return nil
}

// Save commits every pending change to the remote store in dependency
// order. On any single failure the whole attempt stops, the ledger stays
// fully intact and the error reports which change failed; the caller may
// retry Save or Discard. On success the ledger is cleared as a whole,
// the suspended blob is dropped and the snapshot is refetched to become
// the new ground truth. If that refetch fails, ErrStaleSnapshot is
// returned: the changes are saved, only the local view is out of date.
func (s *Session) Save(ctx context.Context) error {
	if s.ledger.IsEmpty() {
		return nil
	}
	if err := commitAll(ctx, s.store, s.workoutID, s.ledger); err != nil {
		return err
	}
	s.ledger.Clear()
	if s.bridge != nil {
		if err := s.bridge.Delete(ctx, s.workoutID); err != nil {
			return fmt.Errorf("changes saved, but clearing suspended session failed: %w", err)
		}
	}
	snap, err := s.store.FetchWorkout(ctx, s.workoutID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStaleSnapshot, err)
	}
	s.snap = snap
	return nil
}

// Discard drops every pending change and the suspended blob. The
// snapshot is untouched and no remote mutation happens; the view simply
// reverts to the last fetched state.
func (s *Session) Discard(ctx context.Context) error {
	s.ledger.Clear()
	if s.bridge == nil {
		return nil
	}
	if err := s.bridge.Delete(ctx, s.workoutID); err != nil {
		return fmt.Errorf("clearing suspended session for workout %d: %w", s.workoutID, err)
	}
	return nil
}

// Refresh refetches the snapshot and reconciles pending changes against
// it, dropping entries whose targets disappeared server-side.
func (s *Session) Refresh(ctx context.Context) error {
	snap, err := s.store.FetchWorkout(ctx, s.workoutID)
	if err != nil {
		return fmt.Errorf("fetching workout %d: %w", s.workoutID, err)
	}
	s.snap = snap
	s.ledger = reconcile(snap, s.ledger)
	return nil
}

func (s *Session) findExerciseCreate(id models.EntityID) *ExerciseCreate {
	for i := range s.ledger.exCreates {
		if s.ledger.exCreates[i].TempID == id {
			return &s.ledger.exCreates[i]
		}
	}
	return nil
}

func (s *Session) findSetCreate(id models.EntityID) *SetCreate {
	for i := range s.ledger.setCreates {
		if s.ledger.setCreates[i].TempID == id {
			return &s.ledger.setCreates[i]
		}
	}
	return nil
}

// checkInstance validates that an exercise instance is editable: it must
// exist in the snapshot or as a pending create, and must not carry a
// pending delete.
func (s *Session) checkInstance(id models.EntityID) error {
	if id.IsPending() {
		if s.findExerciseCreate(id) == nil {
			return ErrNoSuchExercise
		}
		return nil
	}
	if s.snap.Instance(id) == nil {
		return ErrNoSuchExercise
	}
	if _, deleted := s.ledger.exDeletes[id]; deleted {
		return ErrExerciseDeleted
	}
	return nil
}

// checkSet validates that a set is editable: it must exist in the
// snapshot or as a pending create, must not carry a pending delete, and
// its exercise must not be pending deletion either.
func (s *Session) checkSet(id models.EntityID) error {
	if id.IsPending() {
		if s.findSetCreate(id) == nil {
			return ErrNoSuchSet
		}
		return nil
	}
	set := s.snap.FindSet(id)
	if set == nil {
		return ErrNoSuchSet
	}
	if _, deleted := s.ledger.setDeletes[id]; deleted {
		return ErrSetDeleted
	}
	if _, deleted := s.ledger.exDeletes[set.InstanceID]; deleted {
		return ErrExerciseDeleted
	}
	return nil
}
