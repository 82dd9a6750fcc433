package models

import "time"

// SetPatch is a sparse overlay for a set's editable fields. A nil pointer
// leaves the field untouched. ClearCompleted removes the completion
// timestamp; it wins over CompletedAt if both are present.
type SetPatch struct {
	WeightKg       *float64   `json:"weight_kg,omitempty"`
	Reps           *int       `json:"reps,omitempty"`
	DurationSec    *int       `json:"duration_sec,omitempty"`
	DistanceM      *float64   `json:"distance_m,omitempty"`
	Note           *string    `json:"note,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ClearCompleted bool       `json:"clear_completed,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p SetPatch) IsZero() bool {
	return p.WeightKg == nil && p.Reps == nil && p.DurationSec == nil &&
		p.DistanceM == nil && p.Note == nil && p.CompletedAt == nil &&
		!p.ClearCompleted
}

// ApplyTo overlays the patch onto a set. Pointer fields are replaced, not
// written through, so the patch and the original stay untouched.
func (p SetPatch) ApplyTo(s *Set) {
	if p.WeightKg != nil {
		s.WeightKg = p.WeightKg
	}
	if p.Reps != nil {
		s.Reps = p.Reps
	}
	if p.DurationSec != nil {
		s.DurationSec = p.DurationSec
	}
	if p.DistanceM != nil {
		s.DistanceM = p.DistanceM
	}
	if p.Note != nil {
		s.Note = *p.Note
	}
	if p.ClearCompleted {
		s.CompletedAt = nil
	} else if p.CompletedAt != nil {
		s.CompletedAt = p.CompletedAt
	}
}

// SetFields is the full editable payload of a new set.
type SetFields struct {
	WeightKg    *float64   `json:"weight_kg,omitempty"`
	Reps        *int       `json:"reps,omitempty"`
	DurationSec *int       `json:"duration_sec,omitempty"`
	DistanceM   *float64   `json:"distance_m,omitempty"`
	Note        string     `json:"note,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Merge folds a patch into the fields, used when a pending set is edited
// again before it was ever saved.
func (f *SetFields) Merge(p SetPatch) {
	if p.WeightKg != nil {
		f.WeightKg = p.WeightKg
	}
	if p.Reps != nil {
		f.Reps = p.Reps
	}
	if p.DurationSec != nil {
		f.DurationSec = p.DurationSec
	}
	if p.DistanceM != nil {
		f.DistanceM = p.DistanceM
	}
	if p.Note != nil {
		f.Note = *p.Note
	}
	if p.ClearCompleted {
		f.CompletedAt = nil
	} else if p.CompletedAt != nil {
		f.CompletedAt = p.CompletedAt
	}
}

// ApplyToSet copies the fields onto a set, leaving its identity alone.
func (f SetFields) ApplyToSet(s *Set) {
	s.WeightKg = f.WeightKg
	s.Reps = f.Reps
	s.DurationSec = f.DurationSec
	s.DistanceM = f.DistanceM
	s.Note = f.Note
	s.CompletedAt = f.CompletedAt
}

// HeaderPatch is a sparse overlay for the workout header. Unlike set
// patches, successive header patches merge field-wise: the latest write
// wins per field, earlier fields survive.
type HeaderPatch struct {
	Name      *string    `json:"name,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Intensity *int       `json:"intensity,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p HeaderPatch) IsZero() bool {
	return p.Name == nil && p.Notes == nil && p.Intensity == nil &&
		p.StartedAt == nil && p.EndedAt == nil
}

// Merge overlays other onto p, field by field.
func (p *HeaderPatch) Merge(other HeaderPatch) {
	if other.Name != nil {
		p.Name = other.Name
	}
	if other.Notes != nil {
		p.Notes = other.Notes
	}
	if other.Intensity != nil {
		p.Intensity = other.Intensity
	}
	if other.StartedAt != nil {
		p.StartedAt = other.StartedAt
	}
	if other.EndedAt != nil {
		p.EndedAt = other.EndedAt
	}
}

// ApplyTo overlays the patch onto a workout header.
func (p HeaderPatch) ApplyTo(w *Workout) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Notes != nil {
		w.Notes = *p.Notes
	}
	if p.Intensity != nil {
		w.Intensity = *p.Intensity
	}
	if p.StartedAt != nil {
		w.StartedAt = *p.StartedAt
	}
	if p.EndedAt != nil {
		w.EndedAt = *p.EndedAt
	}
}
