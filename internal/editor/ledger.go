// Package editor implements the pending-edit engine for historical
// workout records: a ledger of uncommitted mutations against a fetched
// snapshot, pure projections of the merged view, reconciliation of a
// restored ledger against fresh server state, and a staged commit that
// drains the ledger through per-entity remote calls.
package editor

import (
	"github.com/meltforce/repbook/internal/models"
)

// SetCreate is a pending new set scoped to a persisted exercise instance.
type SetCreate struct {
	TempID     models.EntityID  `json:"temp_id"`
	InstanceID models.EntityID  `json:"instance_id"`
	Fields     models.SetFields `json:"fields"`
}

// ExerciseCreate is a pending new exercise instance. It references only
// the global exercise catalog, never anything instance-scoped.
type ExerciseCreate struct {
	TempID     models.EntityID           `json:"temp_id"`
	Definition models.ExerciseDefinition `json:"definition"`
}

// Ledger accumulates the uncommitted mutations of one editing session.
// Per persisted entity id at most one entry exists: the latest write wins,
// edits never stack. Operations that target a pending entity fold into its
// create entry instead of producing entries of their own. All methods are
// total: invalid recordings (such as editing a deleted set) leave the
// ledger unchanged; callers that need a hard error validate beforehand.
type Ledger struct {
	setEdits   map[models.EntityID]models.SetPatch
	setDeletes map[models.EntityID]struct{}
	setCreates []SetCreate
	exDeletes  map[models.EntityID]struct{}
	exReplaces map[models.EntityID]models.ExerciseDefinition
	exCreates  []ExerciseCreate
	header     models.HeaderPatch

	// nextTempID mints pending ids. It only ever increases within a
	// session, surviving Clear, so a temp id is never reused.
	nextTempID int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		setEdits:   make(map[models.EntityID]models.SetPatch),
		setDeletes: make(map[models.EntityID]struct{}),
		exDeletes:  make(map[models.EntityID]struct{}),
		exReplaces: make(map[models.EntityID]models.ExerciseDefinition),
		nextTempID: 1,
	}
}

func (l *Ledger) mintTempID() models.EntityID {
	id := models.PendingID(l.nextTempID)
	l.nextTempID++
	return id
}

// RecordSetEdit stages a field overlay for a set. Editing a set with a
// pending delete is a no-op; editing a pending set merges into its create
// entry; a repeated edit on the same id replaces the earlier patch.
func (l *Ledger) RecordSetEdit(setID models.EntityID, patch models.SetPatch) {
	if patch.IsZero() {
		return
	}
	if setID.IsPending() {
		for i := range l.setCreates {
			if l.setCreates[i].TempID == setID {
				l.setCreates[i].Fields.Merge(patch)
				return
			}
		}
		return
	}
	if _, deleted := l.setDeletes[setID]; deleted {
		return
	}
	l.setEdits[setID] = patch
}

// RecordSetDelete stages a set deletion, discarding any pending edit for
// the same id. Deleting a pending set removes its create entry outright.
func (l *Ledger) RecordSetDelete(setID models.EntityID) {
	if setID.IsPending() {
		kept := l.setCreates[:0]
		for _, sc := range l.setCreates {
			if sc.TempID != setID {
				kept = append(kept, sc)
			}
		}
		l.setCreates = kept
		return
	}
	delete(l.setEdits, setID)
	l.setDeletes[setID] = struct{}{}
}

// RecordSetCreate stages a new set under a persisted instance and returns
// its minted pending id. Creating under a pending or pending-deleted
// instance is a no-op and returns the zero id.
func (l *Ledger) RecordSetCreate(instanceID models.EntityID, fields models.SetFields) models.EntityID {
	if instanceID.IsPending() {
		return models.EntityID{}
	}
	if _, deleted := l.exDeletes[instanceID]; deleted {
		return models.EntityID{}
	}
	id := l.mintTempID()
	l.setCreates = append(l.setCreates, SetCreate{TempID: id, InstanceID: instanceID, Fields: fields})
	return id
}

// RecordExerciseDelete stages removal of an exercise instance, discarding
// any pending replace for it and any pending set creates under it.
// Deleting a pending instance removes its create entry outright.
func (l *Ledger) RecordExerciseDelete(instanceID models.EntityID) {
	if instanceID.IsPending() {
		kept := l.exCreates[:0]
		for _, ec := range l.exCreates {
			if ec.TempID != instanceID {
				kept = append(kept, ec)
			}
		}
		l.exCreates = kept
		return
	}
	delete(l.exReplaces, instanceID)
	l.exDeletes[instanceID] = struct{}{}

	kept := l.setCreates[:0]
	for _, sc := range l.setCreates {
		if sc.InstanceID != instanceID {
			kept = append(kept, sc)
		}
	}
	l.setCreates = kept
}

// RecordExerciseReplace stages swapping an instance's exercise definition.
// The instance's sets are untouched. Replacing a deleted instance is a
// no-op; replacing a pending instance swaps the definition in its create
// entry; a repeated replace overwrites the earlier one.
func (l *Ledger) RecordExerciseReplace(instanceID models.EntityID, def models.ExerciseDefinition) {
	if instanceID.IsPending() {
		for i := range l.exCreates {
			if l.exCreates[i].TempID == instanceID {
				l.exCreates[i].Definition = def
				return
			}
		}
		return
	}
	if _, deleted := l.exDeletes[instanceID]; deleted {
		return
	}
	l.exReplaces[instanceID] = def
}

// RecordExerciseCreate stages a new exercise instance at the end of the
// workout and returns its minted pending id.
func (l *Ledger) RecordExerciseCreate(def models.ExerciseDefinition) models.EntityID {
	id := l.mintTempID()
	l.exCreates = append(l.exCreates, ExerciseCreate{TempID: id, Definition: def})
	return id
}

// RecordHeaderPatch merges a header patch into the pending one,
// field-level last-write-wins.
func (l *Ledger) RecordHeaderPatch(patch models.HeaderPatch) {
	l.header.Merge(patch)
}

// Clear drops every pending entry. The temp-id counter is preserved so
// ids minted later in the session stay unique.
func (l *Ledger) Clear() {
	l.setEdits = make(map[models.EntityID]models.SetPatch)
	l.setDeletes = make(map[models.EntityID]struct{})
	l.setCreates = nil
	l.exDeletes = make(map[models.EntityID]struct{})
	l.exReplaces = make(map[models.EntityID]models.ExerciseDefinition)
	l.exCreates = nil
	l.header = models.HeaderPatch{}
}

// IsEmpty reports whether no mutation of any kind is pending.
func (l *Ledger) IsEmpty() bool {
	return len(l.setEdits) == 0 && len(l.setDeletes) == 0 && len(l.setCreates) == 0 &&
		len(l.exDeletes) == 0 && len(l.exReplaces) == 0 && len(l.exCreates) == 0 &&
		l.header.IsZero()
}

// Len counts the pending entries, the header patch included.
func (l *Ledger) Len() int {
	n := len(l.setEdits) + len(l.setDeletes) + len(l.setCreates) +
		len(l.exDeletes) + len(l.exReplaces) + len(l.exCreates)
	if !l.header.IsZero() {
		n++
	}
	return n
}

// HeaderPatch returns the pending header patch, zero if none.
func (l *Ledger) HeaderPatch() models.HeaderPatch {
	return l.header
}
