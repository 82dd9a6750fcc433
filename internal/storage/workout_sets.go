package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meltforce/repbook/internal/models"
)

// foreignKeyViolation is the Postgres error code raised when an insert
// references a missing parent row.
const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// CreateSet appends a set to an exercise instance. The sequence number
// is assigned here as the instance's highest existing seq plus one and
// is never renumbered afterwards; deletes may leave gaps. Returns
// ErrNotFound if the instance does not exist.
func (db *DB) CreateSet(ctx context.Context, instanceID int64, fields models.SetFields) (*models.Set, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO workout_sets (exercise_id, seq, weight_kg, reps, duration_sec, distance_m, note, completed_at)
		 SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7
		 FROM workout_sets WHERE exercise_id = $1
		 RETURNING id, seq`,
		instanceID, fields.WeightKg, fields.Reps, fields.DurationSec,
		fields.DistanceM, fields.Note, fields.CompletedAt)

	var id int64
	var seq int
	if err := row.Scan(&id, &seq); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inserting set: %w", err)
	}

	s := &models.Set{
		ID:         models.PersistedID(id),
		InstanceID: models.PersistedID(instanceID),
		Seq:        seq,
	}
	fields.ApplyToSet(s)
	return s, nil
}

// UpdateSet applies a sparse patch to a set. Absent fields are left as
// they are; ClearCompleted nulls the completion timestamp. Returns
// ErrNotFound if the set does not exist.
func (db *DB) UpdateSet(ctx context.Context, setID int64, patch models.SetPatch) error {
	if patch.IsZero() {
		return nil
	}

	var assigns []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		assigns = append(assigns, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.WeightKg != nil {
		add("weight_kg", *patch.WeightKg)
	}
	if patch.Reps != nil {
		add("reps", *patch.Reps)
	}
	if patch.DurationSec != nil {
		add("duration_sec", *patch.DurationSec)
	}
	if patch.DistanceM != nil {
		add("distance_m", *patch.DistanceM)
	}
	if patch.Note != nil {
		add("note", *patch.Note)
	}
	if patch.ClearCompleted {
		assigns = append(assigns, "completed_at = NULL")
	} else if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	}

	args = append(args, setID)
	query := fmt.Sprintf("UPDATE workout_sets SET %s WHERE id = $%d",
		strings.Join(assigns, ", "), len(args))

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSet removes a set. Remaining sets keep their sequence numbers;
// display ordering is the client's concern. Returns ErrNotFound if the
// set does not exist.
func (db *DB) DeleteSet(ctx context.Context, setID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sets WHERE id = $1`, setID)
	if err != nil {
		return fmt.Errorf("deleting set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSet retrieves a single set by id. Returns ErrNotFound if it does
// not exist.
func (db *DB) GetSet(ctx context.Context, setID int64) (*models.Set, error) {
	var s models.Set
	var id, instanceID int64
	err := db.Pool.QueryRow(ctx,
		`SELECT id, exercise_id, seq, weight_kg, reps, duration_sec, distance_m, note, completed_at
		 FROM workout_sets
		 WHERE id = $1`,
		setID,
	).Scan(&id, &instanceID, &s.Seq, &s.WeightKg, &s.Reps, &s.DurationSec, &s.DistanceM, &s.Note, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying set: %w", err)
	}
	s.ID = models.PersistedID(id)
	s.InstanceID = models.PersistedID(instanceID)
	return &s, nil
}
