package editor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// commitAll drains the ledger against the store in five fixed stages:
// header patch, set edits and deletes, set creates, exercise creates,
// exercise deletes and replaces. Calls within the second and fifth stage
// are independent and fire concurrently; creates run one at a time in
// recording order so server-assigned sequence numbers and positions come
// out in the order the user added things.
//
// The first failing call aborts the attempt and is returned as a
// *CommitError. The ledger is never touched here, success or not, so on
// failure every entry is still pending and the caller may retry whole.
func commitAll(ctx context.Context, store Store, workoutID int64, l *Ledger) error {
	if !l.header.IsZero() {
		if err := store.PatchWorkoutHeader(ctx, workoutID, l.header); err != nil {
			return &CommitError{Stage: StageHeader, Op: "update workout", Err: err}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for id, patch := range l.setEdits {
		g.Go(func() error {
			setID, _ := id.Persisted()
			if err := store.UpdateSet(gctx, setID, patch); err != nil {
				return &CommitError{Stage: StageSetChanges, Op: "update set", Target: id, Err: err}
			}
			return nil
		})
	}
	for id := range l.setDeletes {
		g.Go(func() error {
			setID, _ := id.Persisted()
			if err := store.DeleteSet(gctx, setID); err != nil {
				return &CommitError{Stage: StageSetChanges, Op: "delete set", Target: id, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, sc := range l.setCreates {
		instanceID, _ := sc.InstanceID.Persisted()
		if _, err := store.CreateSet(ctx, instanceID, sc.Fields); err != nil {
			return &CommitError{Stage: StageSetCreates, Op: "create set", Target: sc.TempID, Err: err}
		}
	}

	for _, ec := range l.exCreates {
		if _, err := store.CreateExerciseInstance(ctx, workoutID, ec.Definition.ID); err != nil {
			return &CommitError{Stage: StageExerciseCreates, Op: "add exercise", Target: ec.TempID, Err: err}
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	for id := range l.exDeletes {
		g.Go(func() error {
			instanceID, _ := id.Persisted()
			if err := store.DeleteExerciseInstance(gctx, instanceID); err != nil {
				return &CommitError{Stage: StageExerciseRemovals, Op: "remove exercise", Target: id, Err: err}
			}
			return nil
		})
	}
	for id, def := range l.exReplaces {
		g.Go(func() error {
			instanceID, _ := id.Persisted()
			if err := store.ReplaceExerciseInstance(gctx, instanceID, def.ID); err != nil {
				return &CommitError{Stage: StageExerciseRemovals, Op: "replace exercise", Target: id, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}
