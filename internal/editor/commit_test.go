package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/meltforce/repbook/internal/models"
)

// fakeStore implements Store in memory. Mutations are recorded in call
// order and applied to the held snapshot, so a later fetch sees their
// effect. Individual calls can be made to fail by their call key.
type fakeStore struct {
	mu   sync.Mutex
	snap models.WorkoutSnapshot
	defs map[int64]models.ExerciseDefinition
	fail map[string]error

	calls   []string
	fetches int

	nextSetID  int64
	nextInstID int64
}

var _ Store = (*fakeStore)(nil)

func newFakeStore(snap *models.WorkoutSnapshot) *fakeStore {
	return &fakeStore{
		snap:       cloneSnapshot(snap),
		defs:       map[int64]models.ExerciseDefinition{squat.ID: squat, front.ID: front, rowing.ID: rowing},
		fail:       make(map[string]error),
		nextSetID:  1000,
		nextInstID: 500,
	}
}

func cloneSnapshot(snap *models.WorkoutSnapshot) models.WorkoutSnapshot {
	out := models.WorkoutSnapshot{Workout: snap.Workout}
	out.Instances = make([]models.ExerciseInstance, len(snap.Instances))
	for i, inst := range snap.Instances {
		inst.Sets = append([]models.Set(nil), inst.Sets...)
		out.Instances[i] = inst
	}
	return out
}

// failOn makes every call with the given key fail.
func (f *fakeStore) failOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *fakeStore) step(key string) error {
	f.calls = append(f.calls, key)
	return f.fail[key]
}

func (f *fakeStore) FetchWorkout(ctx context.Context, workoutID int64) (*models.WorkoutSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if err := f.fail["fetch workout"]; err != nil {
		return nil, err
	}
	snap := cloneSnapshot(&f.snap)
	return &snap, nil
}

func (f *fakeStore) PatchWorkoutHeader(ctx context.Context, workoutID int64, patch models.HeaderPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("update workout"); err != nil {
		return err
	}
	patch.ApplyTo(&f.snap.Workout)
	return nil
}

func (f *fakeStore) UpdateSet(ctx context.Context, setID int64, patch models.SetPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step(fmt.Sprintf("update set %d", setID)); err != nil {
		return err
	}
	set := f.snap.FindSet(models.PersistedID(setID))
	if set == nil {
		return errors.New("no such set")
	}
	patch.ApplyTo(set)
	return nil
}

func (f *fakeStore) DeleteSet(ctx context.Context, setID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step(fmt.Sprintf("delete set %d", setID)); err != nil {
		return err
	}
	id := models.PersistedID(setID)
	for i := range f.snap.Instances {
		inst := &f.snap.Instances[i]
		kept := inst.Sets[:0]
		for _, s := range inst.Sets {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		inst.Sets = kept
	}
	return nil
}

func (f *fakeStore) CreateSet(ctx context.Context, instanceID int64, fields models.SetFields) (*models.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step(fmt.Sprintf("create set %d", instanceID)); err != nil {
		return nil, err
	}
	inst := f.snap.Instance(models.PersistedID(instanceID))
	if inst == nil {
		return nil, errors.New("no such instance")
	}
	seq := 0
	for _, s := range inst.Sets {
		if s.Seq > seq {
			seq = s.Seq
		}
	}
	set := models.Set{
		ID:         models.PersistedID(f.nextSetID),
		InstanceID: models.PersistedID(instanceID),
		Seq:        seq + 1,
	}
	f.nextSetID++
	fields.ApplyToSet(&set)
	inst.Sets = append(inst.Sets, set)
	return &set, nil
}

func (f *fakeStore) DeleteExerciseInstance(ctx context.Context, instanceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step(fmt.Sprintf("remove exercise %d", instanceID)); err != nil {
		return err
	}
	id := models.PersistedID(instanceID)
	kept := f.snap.Instances[:0]
	for _, inst := range f.snap.Instances {
		if inst.ID != id {
			kept = append(kept, inst)
		}
	}
	f.snap.Instances = kept
	return nil
}

func (f *fakeStore) ReplaceExerciseInstance(ctx context.Context, instanceID, definitionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step(fmt.Sprintf("replace exercise %d", instanceID)); err != nil {
		return err
	}
	inst := f.snap.Instance(models.PersistedID(instanceID))
	if inst == nil {
		return errors.New("no such instance")
	}
	def, ok := f.defs[definitionID]
	if !ok {
		return errors.New("no such definition")
	}
	inst.Definition = def
	return nil
}

func (f *fakeStore) CreateExerciseInstance(ctx context.Context, workoutID, definitionID int64) (*models.ExerciseInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step(fmt.Sprintf("add exercise %d", definitionID)); err != nil {
		return nil, err
	}
	def, ok := f.defs[definitionID]
	if !ok {
		return nil, errors.New("no such definition")
	}
	pos := 0
	for _, inst := range f.snap.Instances {
		if inst.Position > pos {
			pos = inst.Position
		}
	}
	inst := models.ExerciseInstance{
		ID:         models.PersistedID(f.nextInstID),
		Position:   pos + 1,
		Definition: def,
	}
	f.nextInstID++
	f.snap.Instances = append(f.snap.Instances, inst)
	return &inst, nil
}

func (f *fakeStore) FetchExerciseDefinition(ctx context.Context, definitionID int64) (*models.ExerciseDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["fetch definition"]; err != nil {
		return nil, err
	}
	def, ok := f.defs[definitionID]
	if !ok {
		return nil, errors.New("no such definition")
	}
	d := def
	return &d, nil
}

// callIndex returns the position of the first call matching key, or
// fails the test.
func callIndex(t *testing.T, calls []string, key string) int {
	t.Helper()
	for i, c := range calls {
		if c == key {
			return i
		}
	}
	t.Fatalf("call %q not found in %v", key, calls)
	return -1
}

func hasCall(calls []string, key string) bool {
	for _, c := range calls {
		if c == key {
			return true
		}
	}
	return false
}

// TestCommitStageOrder verifies the five fixed stages: header first, set
// edits and deletes next, then set creates, then exercise creates, and
// exercise removals and replaces last. This is what keeps a delete of an
// exercise from racing the edits of its sets.
func TestCommitStageOrder(t *testing.T) {
	fs := newFakeStore(testSnapshot())
	l := NewLedger()
	l.RecordHeaderPatch(models.HeaderPatch{Name: sp("Leg Day A")})
	l.RecordSetEdit(models.PersistedID(101), models.SetPatch{WeightKg: fp(107.5)})
	l.RecordSetDelete(models.PersistedID(100))
	l.RecordSetCreate(models.PersistedID(10), models.SetFields{Note: "a"})
	l.RecordSetCreate(models.PersistedID(10), models.SetFields{Note: "b"})
	l.RecordExerciseCreate(front)
	l.RecordExerciseReplace(models.PersistedID(10), rowing)
	l.RecordExerciseDelete(models.PersistedID(20))

	if err := commitAll(context.Background(), fs, 1, l); err != nil {
		t.Fatalf("commitAll: %v", err)
	}

	if len(fs.calls) != 8 {
		t.Fatalf("calls = %d (%v), want 8", len(fs.calls), fs.calls)
	}
	// Stages 2 and 5 run their calls concurrently, so positions within
	// them are unordered; everything across stage boundaries is fixed.
	if fs.calls[0] != "update workout" {
		t.Errorf("calls[0] = %q, want the header first", fs.calls[0])
	}
	editIdx := callIndex(t, fs.calls, "update set 101")
	delIdx := callIndex(t, fs.calls, "delete set 100")
	if editIdx > 2 || delIdx > 2 {
		t.Errorf("set changes at %d/%d, want them right after the header: %v", editIdx, delIdx, fs.calls)
	}
	if fs.calls[3] != "create set 10" || fs.calls[4] != "create set 10" {
		t.Errorf("calls[3..4] = %q/%q, want the two set creates: %v", fs.calls[3], fs.calls[4], fs.calls)
	}
	if fs.calls[5] != "add exercise 2" {
		t.Errorf("calls[5] = %q, want the exercise create: %v", fs.calls[5], fs.calls)
	}
	removeIdx := callIndex(t, fs.calls, "remove exercise 20")
	replaceIdx := callIndex(t, fs.calls, "replace exercise 10")
	if removeIdx < 6 || replaceIdx < 6 {
		t.Errorf("removals at %d/%d, want them last: %v", removeIdx, replaceIdx, fs.calls)
	}

	// The two creates under instance 10 ran in recording order, so the
	// server-assigned seqs ascend in the order the sets were added.
	inst := fs.snap.Instance(models.PersistedID(10))
	var seqA, seqB int
	for _, s := range inst.Sets {
		switch s.Note {
		case "a":
			seqA = s.Seq
		case "b":
			seqB = s.Seq
		}
	}
	if seqA == 0 || seqB == 0 || seqA >= seqB {
		t.Errorf("created seqs a=%d b=%d, want a < b in recording order", seqA, seqB)
	}
}

// TestCommitCreatesFollowRecordingOrderAcrossInstances verifies that set
// creates interleaved across instances replay exactly as recorded.
func TestCommitCreatesFollowRecordingOrderAcrossInstances(t *testing.T) {
	fs := newFakeStore(testSnapshot())
	l := NewLedger()
	l.RecordSetCreate(models.PersistedID(10), models.SetFields{})
	l.RecordSetCreate(models.PersistedID(20), models.SetFields{})
	l.RecordSetCreate(models.PersistedID(10), models.SetFields{})

	if err := commitAll(context.Background(), fs, 1, l); err != nil {
		t.Fatalf("commitAll: %v", err)
	}

	want := []string{"create set 10", "create set 20", "create set 10"}
	if len(fs.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fs.calls, want)
	}
	for i := range want {
		if fs.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, fs.calls[i], want[i])
		}
	}
}

// TestCommitFirstFailureAborts verifies that the first failing call
// stops the attempt: later stages never run, the error identifies the
// failed change, and the ledger keeps every entry for a retry.
func TestCommitFirstFailureAborts(t *testing.T) {
	fs := newFakeStore(testSnapshot())
	boom := errors.New("exercise catalog entry retired")
	fs.failOn("add exercise 2", boom)

	l := NewLedger()
	l.RecordSetEdit(models.PersistedID(101), models.SetPatch{Reps: ip(4)})
	tempID := l.RecordExerciseCreate(front)
	l.RecordExerciseDelete(models.PersistedID(20))
	entries := l.Len()

	err := commitAll(context.Background(), fs, 1, l)
	if err == nil {
		t.Fatal("commitAll succeeded, want failure")
	}

	ce, ok := AsCommitError(err)
	if !ok {
		t.Fatalf("error %v is not a CommitError", err)
	}
	if ce.Stage != StageExerciseCreates {
		t.Errorf("stage = %v, want %v", ce.Stage, StageExerciseCreates)
	}
	if ce.Op != "add exercise" {
		t.Errorf("op = %q, want %q", ce.Op, "add exercise")
	}
	if ce.Target != tempID {
		t.Errorf("target = %v, want %v", ce.Target, tempID)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause %v not wrapped", boom)
	}

	if hasCall(fs.calls, "remove exercise 20") {
		t.Error("removal stage ran after an earlier stage failed")
	}
	if l.Len() != entries {
		t.Errorf("ledger entries = %d after failed commit, want %d", l.Len(), entries)
	}
}

// TestCommitHeaderFailureRunsNothingElse verifies that a failing header
// update aborts before any entity call fires.
func TestCommitHeaderFailureRunsNothingElse(t *testing.T) {
	fs := newFakeStore(testSnapshot())
	fs.failOn("update workout", errors.New("validation rejected"))

	l := NewLedger()
	l.RecordHeaderPatch(models.HeaderPatch{Intensity: ip(5)})
	l.RecordSetDelete(models.PersistedID(100))

	err := commitAll(context.Background(), fs, 1, l)
	ce, ok := AsCommitError(err)
	if !ok || ce.Stage != StageHeader {
		t.Fatalf("error = %v, want CommitError at header stage", err)
	}
	if len(fs.calls) != 1 {
		t.Errorf("calls = %v, want only the header attempt", fs.calls)
	}
}

// TestCommitEmptyLedgerMakesNoCalls verifies that a ledger with nothing
// pending commits without touching the store.
func TestCommitEmptyLedgerMakesNoCalls(t *testing.T) {
	fs := newFakeStore(testSnapshot())
	if err := commitAll(context.Background(), fs, 1, NewLedger()); err != nil {
		t.Fatalf("commitAll: %v", err)
	}
	if len(fs.calls) != 0 {
		t.Errorf("calls = %v, want none", fs.calls)
	}
}

// TestCommitErrorMessages verifies the operator-facing rendering of a
// failed commit.
func TestCommitErrorMessages(t *testing.T) {
	err := &CommitError{
		Stage:  StageSetChanges,
		Op:     "update set",
		Target: models.PersistedID(101),
		Err:    errors.New("connection reset"),
	}
	want := "commit failed at set changes: update set 101: connection reset"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Category() != "set" {
		t.Errorf("Category() = %q, want %q", err.Category(), "set")
	}

	headerErr := &CommitError{Stage: StageHeader, Op: "update workout", Err: errors.New("boom")}
	want = "commit failed at header: update workout: boom"
	if headerErr.Error() != want {
		t.Errorf("Error() = %q, want %q", headerErr.Error(), want)
	}
	if headerErr.Category() != "header" {
		t.Errorf("Category() = %q, want %q", headerErr.Category(), "header")
	}
	if (&CommitError{Stage: StageExerciseRemovals}).Category() != "exercise" {
		t.Error("removal stage category != exercise")
	}
}
