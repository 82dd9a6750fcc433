package editor

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/meltforce/repbook/internal/models"
)

// blobVersion guards the suspended-session wire format. Bump it when the
// shape changes; decode rejects blobs written by a different version
// rather than guessing.
const blobVersion = 1

// suspendedSession is the durable form of an interrupted editing
// session: the full ledger plus the temp-id counter. JSON-encoded and
// handed to a handoff.Store keyed by workout id.
type suspendedSession struct {
	Version     int       `json:"version"`
	WorkoutID   int64     `json:"workout_id"`
	SuspendedAt time.Time `json:"suspended_at"`
	NextTempID  int64     `json:"next_temp_id"`

	Header          models.HeaderPatch                            `json:"header"`
	SetEdits        map[models.EntityID]models.SetPatch           `json:"set_edits,omitempty"`
	SetDeletes      []models.EntityID                             `json:"set_deletes,omitempty"`
	SetCreates      []SetCreate                                   `json:"set_creates,omitempty"`
	ExerciseDeletes []models.EntityID                             `json:"exercise_deletes,omitempty"`
	ExerciseReplace map[models.EntityID]models.ExerciseDefinition `json:"exercise_replaces,omitempty"`
	ExerciseCreates []ExerciseCreate                              `json:"exercise_creates,omitempty"`
}

// encodeLedger serializes the ledger for handoff storage.
func encodeLedger(workoutID int64, l *Ledger, at time.Time) ([]byte, error) {
	blob := suspendedSession{
		Version:         blobVersion,
		WorkoutID:       workoutID,
		SuspendedAt:     at.UTC(),
		NextTempID:      l.nextTempID,
		Header:          l.header,
		SetEdits:        l.setEdits,
		SetCreates:      l.setCreates,
		ExerciseReplace: l.exReplaces,
		ExerciseCreates: l.exCreates,
		SetDeletes:      sortedIDs(l.setDeletes),
		ExerciseDeletes: sortedIDs(l.exDeletes),
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("encoding suspended session: %w", err)
	}
	return data, nil
}

// decodeLedger restores a ledger from a handoff blob. The result has not
// been reconciled yet and may reference entities that no longer exist.
func decodeLedger(data []byte) (*suspendedSession, error) {
	var blob suspendedSession
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decoding suspended session: %w", err)
	}
	if blob.Version != blobVersion {
		return nil, fmt.Errorf("suspended session has version %d, want %d", blob.Version, blobVersion)
	}
	return &blob, nil
}

// ledger rebuilds the in-memory ledger the blob was encoded from.
func (b *suspendedSession) ledger() *Ledger {
	l := NewLedger()
	if b.NextTempID > l.nextTempID {
		l.nextTempID = b.NextTempID
	}
	l.header = b.Header
	for id, patch := range b.SetEdits {
		l.setEdits[id] = patch
	}
	for _, id := range b.SetDeletes {
		l.setDeletes[id] = struct{}{}
	}
	l.setCreates = append(l.setCreates, b.SetCreates...)
	for _, id := range b.ExerciseDeletes {
		l.exDeletes[id] = struct{}{}
	}
	for id, def := range b.ExerciseReplace {
		l.exReplaces[id] = def
	}
	l.exCreates = append(l.exCreates, b.ExerciseCreates...)
	return l
}

func sortedIDs(set map[models.EntityID]struct{}) []models.EntityID {
	if len(set) == 0 {
		return nil
	}
	ids := make([]models.EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := ids[i].Persisted()
		b, _ := ids[j].Persisted()
		return a < b
	})
	return ids
}
