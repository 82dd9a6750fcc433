package editor

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/meltforce/repbook/internal/models"
)

// testSnapshot builds the fixture used across projection tests: one
// workout with a squat instance (id 10, three sets) and a rowing
// instance (id 20, one set). Stored seqs and positions have gaps, the
// way a server that never renumbers leaves them after deletions.
func testSnapshot() *models.WorkoutSnapshot {
	started := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	return &models.WorkoutSnapshot{
		Workout: models.Workout{
			ID:        1,
			Name:      "Leg Day",
			StartedAt: started,
			EndedAt:   started.Add(time.Hour),
			Intensity: 3,
		},
		Instances: []models.ExerciseInstance{
			{
				ID:         models.PersistedID(10),
				Position:   3,
				Definition: squat,
				Sets: []models.Set{
					{ID: models.PersistedID(100), InstanceID: models.PersistedID(10), Seq: 2, WeightKg: fp(100), Reps: ip(5)},
					{ID: models.PersistedID(101), InstanceID: models.PersistedID(10), Seq: 5, WeightKg: fp(102.5), Reps: ip(3)},
					{ID: models.PersistedID(102), InstanceID: models.PersistedID(10), Seq: 9, WeightKg: fp(105), Reps: ip(1)},
				},
			},
			{
				ID:         models.PersistedID(20),
				Position:   8,
				Definition: rowing,
				Sets: []models.Set{
					{ID: models.PersistedID(200), InstanceID: models.PersistedID(20), Seq: 1, DurationSec: ip(1800), DistanceM: fp(5000)},
				},
			},
		},
	}
}

// TestProjectSetsMergedView verifies the merged set list for one
// exercise: deletions hidden, edits overlaid, pending creates appended,
// and displayed seqs renumbered 1..n even though the stored seqs have
// gaps.
func TestProjectSetsMergedView(t *testing.T) {
	snap := testSnapshot()
	l := NewLedger()
	inst := models.PersistedID(10)

	l.RecordSetDelete(models.PersistedID(100))
	l.RecordSetEdit(models.PersistedID(101), models.SetPatch{WeightKg: fp(107.5)})
	tempID := l.RecordSetCreate(inst, models.SetFields{WeightKg: fp(60), Reps: ip(8), Note: "backoff"})

	sets := ProjectSets(snap, l, inst)

	if len(sets) != 3 {
		t.Fatalf("len(sets) = %d, want 3", len(sets))
	}
	if sets[0].ID != models.PersistedID(101) || *sets[0].WeightKg != 107.5 {
		t.Errorf("sets[0] = %v %v, want set 101 at 107.5", sets[0].ID, sets[0].WeightKg)
	}
	if sets[1].ID != models.PersistedID(102) || *sets[1].WeightKg != 105 {
		t.Errorf("sets[1] = %v, want untouched set 102", sets[1].ID)
	}
	if sets[2].ID != tempID {
		t.Errorf("sets[2].ID = %v, want %v", sets[2].ID, tempID)
	}
	if sets[2].InstanceID != inst || sets[2].Note != "backoff" {
		t.Errorf("appended set = %+v, want fields from the create", sets[2])
	}
	for i, s := range sets {
		if s.Seq != i+1 {
			t.Errorf("sets[%d].Seq = %d, want %d (contiguous from 1)", i, s.Seq, i+1)
		}
	}
}

// TestProjectExercisesMergedView verifies the merged exercise list:
// deleted instances gone with all their sets, replaced definitions
// shown, pending creates appended with their temp id, and positions
// renumbered 1..n.
func TestProjectExercisesMergedView(t *testing.T) {
	snap := testSnapshot()
	l := NewLedger()

	l.RecordExerciseDelete(models.PersistedID(10))
	l.RecordExerciseReplace(models.PersistedID(20), front)
	tempID := l.RecordExerciseCreate(squat)

	out := ProjectExercises(snap, l)

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].ID != models.PersistedID(20) {
		t.Errorf("out[0].ID = %v, want instance 20", out[0].ID)
	}
	if out[0].Definition.ID != front.ID {
		t.Errorf("out[0].Definition = %q, want %q", out[0].Definition.Name, front.Name)
	}
	if len(out[0].Sets) != 1 || out[0].Sets[0].ID != models.PersistedID(200) {
		t.Errorf("out[0].Sets = %v, want the rowing set kept through the replace", out[0].Sets)
	}
	if out[1].ID != tempID {
		t.Errorf("out[1].ID = %v, want %v", out[1].ID, tempID)
	}
	if len(out[1].Sets) != 0 {
		t.Errorf("pending exercise has %d sets, want 0", len(out[1].Sets))
	}
	for i, inst := range out {
		if inst.Position != i+1 {
			t.Errorf("out[%d].Position = %d, want %d", i, inst.Position, i+1)
		}
	}
}

// TestProjectWorkoutHeader verifies the header overlay without touching
// the snapshot.
func TestProjectWorkoutHeader(t *testing.T) {
	snap := testSnapshot()
	l := NewLedger()
	l.RecordHeaderPatch(models.HeaderPatch{Name: sp("Leg Day A"), Intensity: ip(5)})

	w := ProjectWorkout(snap, l)

	if w.Name != "Leg Day A" || w.Intensity != 5 {
		t.Errorf("projected header = %q/%d, want Leg Day A/5", w.Name, w.Intensity)
	}
	if snap.Workout.Name != "Leg Day" || snap.Workout.Intensity != 3 {
		t.Errorf("snapshot header = %q/%d, modified by projection", snap.Workout.Name, snap.Workout.Intensity)
	}
}

// TestProjectLeavesInputsUntouched verifies that projecting is pure: the
// snapshot and the ledger come out byte-identical.
func TestProjectLeavesInputsUntouched(t *testing.T) {
	snap := testSnapshot()
	l := NewLedger()
	l.RecordSetDelete(models.PersistedID(100))
	l.RecordSetEdit(models.PersistedID(101), models.SetPatch{Reps: ip(4)})
	l.RecordSetCreate(models.PersistedID(10), models.SetFields{Reps: ip(8)})
	l.RecordExerciseReplace(models.PersistedID(20), front)
	l.RecordHeaderPatch(models.HeaderPatch{Name: sp("changed")})

	before, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	entries := l.Len()

	Project(snap, l)

	after, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("snapshot modified by projection")
	}
	if l.Len() != entries {
		t.Errorf("ledger entries = %d, want %d", l.Len(), entries)
	}
}

// TestProjectIsStable verifies that projecting twice yields the same
// view, so a UI can re-render freely.
func TestProjectIsStable(t *testing.T) {
	snap := testSnapshot()
	l := NewLedger()
	l.RecordSetEdit(models.PersistedID(101), models.SetPatch{WeightKg: fp(110)})
	l.RecordSetCreate(models.PersistedID(10), models.SetFields{Reps: ip(8)})
	l.RecordExerciseCreate(front)

	first := Project(snap, l)
	second := Project(snap, l)

	if !reflect.DeepEqual(first, second) {
		t.Error("two projections of the same state differ")
	}
}

// TestProjectEditedPendingSetShownOnce verifies that a pending set
// edited after creation appears once, with the merged fields.
func TestProjectEditedPendingSetShownOnce(t *testing.T) {
	snap := testSnapshot()
	l := NewLedger()
	inst := models.PersistedID(20)

	tempID := l.RecordSetCreate(inst, models.SetFields{DurationSec: ip(1200)})
	l.RecordSetEdit(tempID, models.SetPatch{DurationSec: ip(1500), DistanceM: fp(4200)})

	sets := ProjectSets(snap, l, inst)

	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}
	got := sets[1]
	if got.ID != tempID {
		t.Errorf("sets[1].ID = %v, want %v", got.ID, tempID)
	}
	if got.DurationSec == nil || *got.DurationSec != 1500 {
		t.Errorf("duration = %v, want 1500", got.DurationSec)
	}
	if got.DistanceM == nil || *got.DistanceM != 4200 {
		t.Errorf("distance = %v, want 4200", got.DistanceM)
	}
}

// TestProjectSetsUnknownInstance verifies that projecting sets of an
// instance the snapshot does not contain yields an empty list.
func TestProjectSetsUnknownInstance(t *testing.T) {
	snap := testSnapshot()
	if sets := ProjectSets(snap, NewLedger(), models.PersistedID(999)); len(sets) != 0 {
		t.Errorf("len(sets) = %d, want 0", len(sets))
	}
}
