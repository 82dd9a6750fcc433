package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repbook/internal/models"
)

// AddExerciseInstance links an exercise definition into a workout at the
// end of the list (highest existing position plus one) and returns the
// new instance with its definition metadata attached. Returns
// ErrNotFound if the workout or the definition does not exist.
func (db *DB) AddExerciseInstance(ctx context.Context, workoutID, definitionID int64) (*models.ExerciseInstance, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO workout_exercises (workout_id, definition_id, position)
		 SELECT $1, $2, COALESCE(MAX(position), 0) + 1
		 FROM workout_exercises WHERE workout_id = $1
		 RETURNING id, position`,
		workoutID, definitionID)

	var id int64
	var position int
	if err := row.Scan(&id, &position); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inserting workout exercise: %w", err)
	}

	def, err := db.GetDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	return &models.ExerciseInstance{
		ID:         models.PersistedID(id),
		Position:   position,
		Definition: *def,
	}, nil
}

// DeleteExerciseInstance removes an instance and, via cascade, its sets.
// Remaining instances keep their positions; display ordering is the
// client's concern. Returns ErrNotFound if the instance does not exist.
func (db *DB) DeleteExerciseInstance(ctx context.Context, instanceID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_exercises WHERE id = $1`, instanceID)
	if err != nil {
		return fmt.Errorf("deleting workout exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceExerciseDefinition swaps which catalog exercise an instance
// refers to, keeping its position and sets. Returns ErrNotFound if the
// instance or the definition does not exist.
func (db *DB) ReplaceExerciseDefinition(ctx context.Context, instanceID, definitionID int64) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_exercises SET definition_id = $2 WHERE id = $1`,
		instanceID, definitionID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("updating workout exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetExerciseInstance retrieves a single instance with its definition
// and sets. Returns ErrNotFound if it does not exist.
func (db *DB) GetExerciseInstance(ctx context.Context, instanceID int64) (*models.ExerciseInstance, error) {
	var inst models.ExerciseInstance
	var id int64
	err := db.Pool.QueryRow(ctx,
		`SELECT we.id, we.position, d.id, d.name, d.category, d.muscle_group, d.equipment, d.video_url
		 FROM workout_exercises we
		 JOIN exercise_definitions d ON d.id = we.definition_id
		 WHERE we.id = $1`,
		instanceID,
	).Scan(&id, &inst.Position,
		&inst.Definition.ID, &inst.Definition.Name, &inst.Definition.Category,
		&inst.Definition.MuscleGroup, &inst.Definition.Equipment, &inst.Definition.VideoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout exercise: %w", err)
	}
	inst.ID = models.PersistedID(id)

	rows, err := db.Pool.Query(ctx,
		`SELECT id, exercise_id, seq, weight_kg, reps, duration_sec, distance_m, note, completed_at
		 FROM workout_sets
		 WHERE exercise_id = $1
		 ORDER BY seq ASC`,
		instanceID)
	if err != nil {
		return nil, fmt.Errorf("querying instance sets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Set
		var setID, instID int64
		if err := rows.Scan(&setID, &instID, &s.Seq,
			&s.WeightKg, &s.Reps, &s.DurationSec, &s.DistanceM, &s.Note, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning instance set: %w", err)
		}
		s.ID = models.PersistedID(setID)
		s.InstanceID = models.PersistedID(instID)
		inst.Sets = append(inst.Sets, s)
	}
	return &inst, rows.Err()
}
