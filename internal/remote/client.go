// Package remote is the HTTP client for the repbook store server. It
// implements editor.Store plus the browsing calls the editing surface
// needs. Calls are independent and never retried here: retry policy
// belongs to whoever drives the editing session.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meltforce/repbook/internal/models"
)

// ErrNotFound is returned for requests whose target id has no row
// server-side, so the reconciler's staleness handling can tell a missing
// entity from a transport failure.
var ErrNotFound = errors.New("not found")

// Client sends requests to the repbook server over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. The API key is
// sent on every request; the server only checks it on mutations.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do issues one request and decodes the JSON response into out when out
// is non-nil. A 404 comes back as ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed (status %d): %s", method, path, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// FetchWorkout retrieves the full aggregate snapshot of one workout.
func (c *Client) FetchWorkout(ctx context.Context, workoutID int64) (*models.WorkoutSnapshot, error) {
	var snap models.WorkoutSnapshot
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/workouts/%d", workoutID), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// PatchWorkoutHeader applies a sparse header patch to a workout.
func (c *Client) PatchWorkoutHeader(ctx context.Context, workoutID int64, patch models.HeaderPatch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/workouts/%d", workoutID), patch, nil)
}

// UpdateSet applies a sparse patch to a set.
func (c *Client) UpdateSet(ctx context.Context, setID int64, patch models.SetPatch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/sets/%d", setID), patch, nil)
}

// DeleteSet removes a set.
func (c *Client) DeleteSet(ctx context.Context, setID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/sets/%d", setID), nil, nil)
}

// CreateSet appends a set to an exercise instance and returns it with
// its server-assigned id and sequence number.
func (c *Client) CreateSet(ctx context.Context, instanceID int64, fields models.SetFields) (*models.Set, error) {
	var set models.Set
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/exercises/%d/sets", instanceID), fields, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// DeleteExerciseInstance removes an exercise instance and its sets.
func (c *Client) DeleteExerciseInstance(ctx context.Context, instanceID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/exercises/%d", instanceID), nil, nil)
}

// ReplaceExerciseInstance swaps which catalog exercise an instance
// refers to.
func (c *Client) ReplaceExerciseInstance(ctx context.Context, instanceID, definitionID int64) error {
	body := map[string]int64{"definition_id": definitionID}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/exercises/%d/definition", instanceID), body, nil)
}

// CreateExerciseInstance adds an exercise at the end of a workout and
// returns the new instance.
func (c *Client) CreateExerciseInstance(ctx context.Context, workoutID, definitionID int64) (*models.ExerciseInstance, error) {
	body := map[string]int64{"definition_id": definitionID}
	var inst models.ExerciseInstance
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/workouts/%d/exercises", workoutID), body, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// FetchExerciseDefinition retrieves one catalog exercise.
func (c *Client) FetchExerciseDefinition(ctx context.Context, definitionID int64) (*models.ExerciseDefinition, error) {
	var def models.ExerciseDefinition
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/definitions/%d", definitionID), nil, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ListWorkouts retrieves workout headers in a time range, most recent
// first. Zero times fall back to the server's default range.
func (c *Client) ListWorkouts(ctx context.Context, start, end time.Time, limit int) ([]models.Workout, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("end", end.Format(time.RFC3339))
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/workouts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var workouts []models.Workout
	if err := c.do(ctx, http.MethodGet, path, nil, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// SearchDefinitions searches the exercise catalog by name, category or
// muscle group.
func (c *Client) SearchDefinitions(ctx context.Context, query string, limit int) ([]models.ExerciseDefinition, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/definitions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var defs []models.ExerciseDefinition
	if err := c.do(ctx, http.MethodGet, path, nil, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}
