package models

import "time"

// Workout is the header of one logged training session.
type Workout struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Intensity int       `json:"intensity"` // 1 (easy) .. 5 (max effort)
}

// Duration is derived from the start/end timestamps and never stored.
func (w Workout) Duration() time.Duration {
	return w.EndedAt.Sub(w.StartedAt)
}

// ExerciseDefinition is a catalog entry describing one exercise.
type ExerciseDefinition struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	MuscleGroup string `json:"muscle_group,omitempty"`
	Equipment   string `json:"equipment,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
}

// ExerciseInstance is one exercise slot inside a workout, carrying the
// definition's display metadata denormalized at link time.
type ExerciseInstance struct {
	ID         EntityID           `json:"id"`
	Position   int                `json:"position"`
	Definition ExerciseDefinition `json:"definition"`
	Sets       []Set              `json:"sets"`
}

// Set is a single performed (or planned) set within an exercise instance.
// The value fields are optional: a timed set has no reps, a bodyweight set
// may have no weight. A nil CompletedAt means the set was never marked done.
type Set struct {
	ID          EntityID   `json:"id"`
	InstanceID  EntityID   `json:"instance_id"`
	Seq         int        `json:"seq"` // 1-based, local to the owning instance
	WeightKg    *float64   `json:"weight_kg,omitempty"`
	Reps        *int       `json:"reps,omitempty"`
	DurationSec *int       `json:"duration_sec,omitempty"`
	DistanceM   *float64   `json:"distance_m,omitempty"`
	Note        string     `json:"note,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkoutSnapshot is the last-fetched authoritative copy of a workout
// aggregate: header plus ordered exercise instances with their sets.
type WorkoutSnapshot struct {
	Workout   Workout            `json:"workout"`
	Instances []ExerciseInstance `json:"instances"`
}

// Instance returns the instance with the given id, or nil.
func (s *WorkoutSnapshot) Instance(id EntityID) *ExerciseInstance {
	for i := range s.Instances {
		if s.Instances[i].ID == id {
			return &s.Instances[i]
		}
	}
	return nil
}

// FindSet returns the set with the given id from any instance, or nil.
func (s *WorkoutSnapshot) FindSet(id EntityID) *Set {
	for i := range s.Instances {
		for j := range s.Instances[i].Sets {
			if s.Instances[i].Sets[j].ID == id {
				return &s.Instances[i].Sets[j]
			}
		}
	}
	return nil
}
