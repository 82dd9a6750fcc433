package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repbook/internal/models"
)

// SearchDefinitions retrieves catalog exercises whose name, category or
// muscle group matches the query, case-insensitively. An empty query
// lists the catalog. A limit of 0 means no limit.
func (db *DB) SearchDefinitions(ctx context.Context, query string, limit int) ([]models.ExerciseDefinition, error) {
	sql := `SELECT id, name, category, muscle_group, equipment, video_url
		 FROM exercise_definitions`
	args := []any{}
	if query != "" {
		args = append(args, "%"+query+"%")
		sql += ` WHERE name ILIKE $1 OR category ILIKE $1 OR muscle_group ILIKE $1`
	}
	sql += ` ORDER BY name ASC`
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercise definitions: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseDefinition
	for rows.Next() {
		var d models.ExerciseDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.Category, &d.MuscleGroup, &d.Equipment, &d.VideoURL); err != nil {
			return nil, fmt.Errorf("scanning exercise definition: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetDefinition retrieves one catalog exercise by id. Returns
// ErrNotFound if it does not exist.
func (db *DB) GetDefinition(ctx context.Context, definitionID int64) (*models.ExerciseDefinition, error) {
	var d models.ExerciseDefinition
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, category, muscle_group, equipment, video_url
		 FROM exercise_definitions
		 WHERE id = $1`,
		definitionID,
	).Scan(&d.ID, &d.Name, &d.Category, &d.MuscleGroup, &d.Equipment, &d.VideoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise definition: %w", err)
	}
	return &d, nil
}
