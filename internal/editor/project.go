package editor

import (
	"sort"

	"github.com/meltforce/repbook/internal/models"
)

// ProjectWorkout returns the workout header with the pending header patch
// applied. The snapshot is not modified.
func ProjectWorkout(snap *models.WorkoutSnapshot, ledger *Ledger) models.Workout {
	w := snap.Workout
	ledger.header.ApplyTo(&w)
	return w
}

// ProjectExercises returns the exercise list as the user should see it:
// pending-deleted instances are gone, pending replaces show the new
// definition, pending creates are appended after the persisted ones, and
// positions run 1..n with no gaps regardless of what the server stored.
// Set lists inside the returned instances are projected too.
func ProjectExercises(snap *models.WorkoutSnapshot, ledger *Ledger) []models.ExerciseInstance {
	persisted := make([]models.ExerciseInstance, 0, len(snap.Instances))
	for _, inst := range snap.Instances {
		if _, deleted := ledger.exDeletes[inst.ID]; deleted {
			continue
		}
		if def, ok := ledger.exReplaces[inst.ID]; ok {
			inst.Definition = def
		}
		persisted = append(persisted, inst)
	}
	sort.SliceStable(persisted, func(i, j int) bool {
		return persisted[i].Position < persisted[j].Position
	})

	out := make([]models.ExerciseInstance, 0, len(persisted)+len(ledger.exCreates))
	for _, inst := range persisted {
		inst.Sets = ProjectSets(snap, ledger, inst.ID)
		out = append(out, inst)
	}
	for _, ec := range ledger.exCreates {
		out = append(out, models.ExerciseInstance{
			ID:         ec.TempID,
			Definition: ec.Definition,
		})
	}
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// ProjectSets returns one instance's sets as the user should see them:
// pending-deleted sets are gone, pending edits are overlaid, pending
// creates follow the persisted sets in the order they were recorded, and
// sequence numbers run 1..n with no gaps. The stored sequence numbers the
// server assigned are only used for ordering and never shown.
func ProjectSets(snap *models.WorkoutSnapshot, ledger *Ledger, instanceID models.EntityID) []models.Set {
	var persisted []models.Set
	if inst := snap.Instance(instanceID); inst != nil {
		for _, s := range inst.Sets {
			if _, deleted := ledger.setDeletes[s.ID]; deleted {
				continue
			}
			if patch, ok := ledger.setEdits[s.ID]; ok {
				patch.ApplyTo(&s)
			}
			persisted = append(persisted, s)
		}
	}
	sort.SliceStable(persisted, func(i, j int) bool {
		return persisted[i].Seq < persisted[j].Seq
	})

	out := make([]models.Set, 0, len(persisted))
	out = append(out, persisted...)
	for _, sc := range ledger.setCreates {
		if sc.InstanceID != instanceID {
			continue
		}
		s := models.Set{ID: sc.TempID, InstanceID: instanceID}
		sc.Fields.ApplyToSet(&s)
		out = append(out, s)
	}
	for i := range out {
		out[i].Seq = i + 1
	}
	return out
}

// Project returns the fully merged view of the workout: header patch
// applied, exercise and set lists projected. Inputs are not modified.
func Project(snap *models.WorkoutSnapshot, ledger *Ledger) models.WorkoutSnapshot {
	return models.WorkoutSnapshot{
		Workout:   ProjectWorkout(snap, ledger),
		Instances: ProjectExercises(snap, ledger),
	}
}
