package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repbook/internal/models"
)

// CreateWorkout inserts a workout header and returns its assigned id.
func (db *DB) CreateWorkout(ctx context.Context, w models.Workout) (int64, error) {
	var endedAt *time.Time
	if !w.EndedAt.IsZero() {
		endedAt = &w.EndedAt
	}
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO workouts (name, notes, started_at, ended_at, intensity)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		w.Name, w.Notes, w.StartedAt, endedAt, w.Intensity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting workout: %w", err)
	}
	return id, nil
}

// ListWorkouts retrieves workout headers in a time range, most recent
// first. A limit of 0 means no limit.
func (db *DB) ListWorkouts(ctx context.Context, start, end time.Time, limit int) ([]models.Workout, error) {
	query := `SELECT id, name, notes, started_at, ended_at, intensity
		 FROM workouts
		 WHERE started_at >= $1 AND started_at < $2
		 ORDER BY started_at DESC`
	args := []any{start, end}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkoutSnapshot retrieves a workout with its exercise instances and
// their sets, each list in stored order. Returns ErrNotFound if the
// workout does not exist.
func (db *DB) GetWorkoutSnapshot(ctx context.Context, workoutID int64) (*models.WorkoutSnapshot, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, notes, started_at, ended_at, intensity
		 FROM workouts
		 WHERE id = $1`,
		workoutID)
	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	snap := &models.WorkoutSnapshot{Workout: w}

	exRows, err := db.Pool.Query(ctx,
		`SELECT we.id, we.position, d.id, d.name, d.category, d.muscle_group, d.equipment, d.video_url
		 FROM workout_exercises we
		 JOIN exercise_definitions d ON d.id = we.definition_id
		 WHERE we.workout_id = $1
		 ORDER BY we.position ASC, we.id ASC`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout exercises: %w", err)
	}
	defer exRows.Close()

	index := make(map[int64]int)
	for exRows.Next() {
		var inst models.ExerciseInstance
		var instID int64
		if err := exRows.Scan(&instID, &inst.Position,
			&inst.Definition.ID, &inst.Definition.Name, &inst.Definition.Category,
			&inst.Definition.MuscleGroup, &inst.Definition.Equipment, &inst.Definition.VideoURL); err != nil {
			return nil, fmt.Errorf("scanning workout exercise: %w", err)
		}
		inst.ID = models.PersistedID(instID)
		index[instID] = len(snap.Instances)
		snap.Instances = append(snap.Instances, inst)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.exercise_id, s.seq, s.weight_kg, s.reps, s.duration_sec, s.distance_m, s.note, s.completed_at
		 FROM workout_sets s
		 JOIN workout_exercises we ON we.id = s.exercise_id
		 WHERE we.workout_id = $1
		 ORDER BY s.exercise_id ASC, s.seq ASC`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var s models.Set
		var setID, instID int64
		if err := setRows.Scan(&setID, &instID, &s.Seq,
			&s.WeightKg, &s.Reps, &s.DurationSec, &s.DistanceM, &s.Note, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		s.ID = models.PersistedID(setID)
		s.InstanceID = models.PersistedID(instID)
		if i, ok := index[instID]; ok {
			snap.Instances[i].Sets = append(snap.Instances[i].Sets, s)
		}
	}
	return snap, setRows.Err()
}

// UpdateWorkoutHeader applies a sparse header patch. Absent fields are
// left as they are. Returns ErrNotFound if the workout does not exist.
func (db *DB) UpdateWorkoutHeader(ctx context.Context, workoutID int64, patch models.HeaderPatch) error {
	if patch.IsZero() {
		return nil
	}

	var assigns []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		assigns = append(assigns, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Intensity != nil {
		add("intensity", *patch.Intensity)
	}
	if patch.StartedAt != nil {
		add("started_at", *patch.StartedAt)
	}
	if patch.EndedAt != nil {
		add("ended_at", *patch.EndedAt)
	}

	args = append(args, workoutID)
	query := fmt.Sprintf("UPDATE workouts SET %s WHERE id = $%d",
		strings.Join(assigns, ", "), len(args))

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating workout header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkout removes a workout and, via cascade, its exercises and
// sets. Returns ErrNotFound if the workout does not exist.
func (db *DB) DeleteWorkout(ctx context.Context, workoutID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, workoutID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanWorkout reads one workout header row from either a pgx.Row or
// pgx.Rows.
func scanWorkout(row pgx.Row) (models.Workout, error) {
	var w models.Workout
	var endedAt *time.Time
	err := row.Scan(&w.ID, &w.Name, &w.Notes, &w.StartedAt, &endedAt, &w.Intensity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("scanning workout: %w", err)
	}
	if endedAt != nil {
		w.EndedAt = *endedAt
	}
	return w, nil
}
