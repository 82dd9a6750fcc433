package editor

import (
	"github.com/meltforce/repbook/internal/models"
)

// reconcile rebuilds a restored ledger against a freshly fetched
// snapshot, dropping entries whose target no longer exists server-side.
// A dropped entry is not an error: someone else already removed the
// entity, so the pending change is moot. Entries are never resurrected
// and never invented, and the temp-id counter carries over so ids minted
// after resume cannot collide with surviving pending creates.
//
// Validity per entry kind: set edits and deletes need their set in the
// snapshot, exercise deletes and replaces need their instance, set
// creates need their owning instance, and exercise creates and the
// header patch are always valid since they reference nothing
// instance-scoped.
func reconcile(snap *models.WorkoutSnapshot, stale *Ledger) *Ledger {
	fresh := NewLedger()
	fresh.nextTempID = stale.nextTempID
	fresh.header = stale.header

	for id, patch := range stale.setEdits {
		if snap.FindSet(id) != nil {
			fresh.setEdits[id] = patch
		}
	}
	for id := range stale.setDeletes {
		if snap.FindSet(id) != nil {
			fresh.setDeletes[id] = struct{}{}
		}
	}
	for _, sc := range stale.setCreates {
		if snap.Instance(sc.InstanceID) != nil {
			fresh.setCreates = append(fresh.setCreates, sc)
		}
	}
	for id := range stale.exDeletes {
		if snap.Instance(id) != nil {
			fresh.exDeletes[id] = struct{}{}
		}
	}
	for id, def := range stale.exReplaces {
		if snap.Instance(id) != nil {
			fresh.exReplaces[id] = def
		}
	}
	fresh.exCreates = append(fresh.exCreates, stale.exCreates...)

	return fresh
}
