package mcp

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/repbook/internal/editor"
	"github.com/meltforce/repbook/internal/models"
)

// defaultTimeRange returns start/end defaulting to the last 90 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -90)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

func requireEntityID(req mcp.CallToolRequest, key string) (models.EntityID, error) {
	s, err := req.RequireString(key)
	if err != nil {
		return models.EntityID{}, err
	}
	return models.ParseEntityID(s)
}

func requireInt64(req mcp.CallToolRequest, key string) (int64, error) {
	s, err := req.RequireString(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return v, nil
}

func optFloat(req mcp.CallToolRequest, key string) (*float64, error) {
	s := req.GetString(key, "")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &v, nil
}

func optInt(req mcp.CallToolRequest, key string) (*int, error) {
	s := req.GetString(key, "")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.New(key + " must be an integer")
	}
	return &v, nil
}

func optTime(req mcp.CallToolRequest, key string) (*time.Time, error) {
	s := req.GetString(key, "")
	if s == "" {
		return nil, nil
	}
	if s == "now" {
		t := time.Now()
		return &t, nil
	}
	t, err := parseFlexTime(s)
	if err != nil {
		return nil, errors.New(key + " must be an ISO 8601 timestamp, YYYY-MM-DD, or \"now\"")
	}
	return &t, nil
}

// setPatch reads the sparse set-field arguments used by edit_set.
func setPatch(req mcp.CallToolRequest) (models.SetPatch, error) {
	var patch models.SetPatch
	var err error
	if patch.WeightKg, err = optFloat(req, "weight_kg"); err != nil {
		return patch, err
	}
	if patch.Reps, err = optInt(req, "reps"); err != nil {
		return patch, err
	}
	if patch.DurationSec, err = optInt(req, "duration_sec"); err != nil {
		return patch, err
	}
	if patch.DistanceM, err = optFloat(req, "distance_m"); err != nil {
		return patch, err
	}
	if note := req.GetString("note", ""); note != "" {
		patch.Note = &note
	}
	if patch.CompletedAt, err = optTime(req, "completed_at"); err != nil {
		return patch, err
	}
	patch.ClearCompleted = req.GetString("clear_completed", "") == "true"
	return patch, nil
}

// setFields reads the full set payload used by add_set.
func setFields(req mcp.CallToolRequest) (models.SetFields, error) {
	var fields models.SetFields
	var err error
	if fields.WeightKg, err = optFloat(req, "weight_kg"); err != nil {
		return fields, err
	}
	if fields.Reps, err = optInt(req, "reps"); err != nil {
		return fields, err
	}
	if fields.DurationSec, err = optInt(req, "duration_sec"); err != nil {
		return fields, err
	}
	if fields.DistanceM, err = optFloat(req, "distance_m"); err != nil {
		return fields, err
	}
	fields.Note = req.GetString("note", "")
	if fields.CompletedAt, err = optTime(req, "completed_at"); err != nil {
		return fields, err
	}
	return fields, nil
}

// editView is the shape every editing tool returns: the workout as it
// will look once pending changes are saved.
type editView struct {
	Token          string                    `json:"token"`
	WorkoutID      int64                     `json:"workout_id"`
	PendingChanges int                       `json:"pending_changes"`
	Workout        models.Workout            `json:"workout"`
	Exercises      []models.ExerciseInstance `json:"exercises"`
}

func viewOf(ms *managedSession) editView {
	view := ms.session.View()
	return editView{
		Token:          ms.token,
		WorkoutID:      ms.workoutID,
		PendingChanges: ms.session.PendingCount(),
		Workout:        view.Workout,
		Exercises:      view.Instances,
	}
}

// --- Tool definitions ---

var toolWorkoutList = mcp.NewTool("workout_list",
	mcp.WithDescription("List logged workouts, most recent first. Returns workout headers with ids usable in workout_edit_begin."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("limit", mcp.Description("Maximum number of workouts to return. Defaults to 20.")),
)

var toolWorkoutEditBegin = mcp.NewTool("workout_edit_begin",
	mcp.WithDescription("Start editing a workout. Fetches its current state and returns a session token plus the full view. If an interrupted session for this workout is still within the grace window, its pending changes are restored; beginning twice returns the same session. Nothing is written to the server until workout_edit_save."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Id of the workout to edit")),
)

var toolWorkoutEditView = mcp.NewTool("workout_edit_view",
	mcp.WithDescription("Show the workout as it will look once pending changes are saved: header, exercises and sets with edits applied, deletions hidden and new entries (ids like \"new-1\") appended."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token from workout_edit_begin")),
)

var toolEditWorkoutHeader = mcp.NewTool("edit_workout_header",
	mcp.WithDescription("Stage changes to the workout header. Only the fields given change; successive calls merge field by field."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("name", mcp.Description("New workout name")),
	mcp.WithString("notes", mcp.Description("New workout notes")),
	mcp.WithString("intensity", mcp.Description("Perceived intensity, 1 (easy) to 5 (max effort)")),
	mcp.WithString("started_at", mcp.Description("New start time (ISO 8601 or YYYY-MM-DD)")),
	mcp.WithString("ended_at", mcp.Description("New end time (ISO 8601, YYYY-MM-DD, or \"now\")")),
)

var toolEditSet = mcp.NewTool("edit_set",
	mcp.WithDescription("Stage a change to one set. Only the fields given change. A second edit of the same set replaces the first, it does not stack."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("set_id", mcp.Required(), mcp.Description("Set id from the view (\"123\" or \"new-1\")")),
	mcp.WithString("weight_kg", mcp.Description("New weight in kilograms, e.g. \"82.5\"")),
	mcp.WithString("reps", mcp.Description("New repetition count")),
	mcp.WithString("duration_sec", mcp.Description("New duration in seconds (for timed sets)")),
	mcp.WithString("distance_m", mcp.Description("New distance in meters (for cardio sets)")),
	mcp.WithString("note", mcp.Description("New note text")),
	mcp.WithString("completed_at", mcp.Description("When the set was done (ISO 8601, YYYY-MM-DD, or \"now\")")),
	mcp.WithString("clear_completed", mcp.Description("\"true\" to mark the set as not done"), mcp.Enum("true", "false")),
)

var toolDeleteSet = mcp.NewTool("delete_set",
	mcp.WithDescription("Stage removal of a set. Any pending edit of the same set is discarded; remaining sets renumber in the view."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("set_id", mcp.Required(), mcp.Description("Set id from the view")),
)

var toolAddSet = mcp.NewTool("add_set",
	mcp.WithDescription("Stage a new set at the end of an exercise. The set gets a provisional id like \"new-1\" until saved. Only works for exercises that are already saved, not ones added in this session."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise instance id from the view")),
	mcp.WithString("weight_kg", mcp.Description("Weight in kilograms")),
	mcp.WithString("reps", mcp.Description("Repetition count")),
	mcp.WithString("duration_sec", mcp.Description("Duration in seconds")),
	mcp.WithString("distance_m", mcp.Description("Distance in meters")),
	mcp.WithString("note", mcp.Description("Note text")),
	mcp.WithString("completed_at", mcp.Description("When the set was done (ISO 8601, YYYY-MM-DD, or \"now\")")),
)

var toolDeleteExercise = mcp.NewTool("delete_exercise",
	mcp.WithDescription("Stage removal of an exercise and all its sets, including any sets added to it in this session."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise instance id from the view")),
)

var toolReplaceExercise = mcp.NewTool("replace_exercise",
	mcp.WithDescription("Stage swapping an exercise for a different one from the catalog (e.g. logged Back Squat but did Front Squat). Logged sets stay attached."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise instance id from the view")),
	mcp.WithString("definition_id", mcp.Required(), mcp.Description("Catalog id of the replacement exercise, from search_exercises")),
)

var toolAddExercise = mcp.NewTool("add_exercise",
	mcp.WithDescription("Stage adding an exercise at the end of the workout. It gets a provisional id like \"new-2\"; sets can be added to it only after saving."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
	mcp.WithString("definition_id", mcp.Required(), mcp.Description("Catalog id of the exercise to add, from search_exercises")),
)

var toolSearchExercises = mcp.NewTool("search_exercises",
	mcp.WithDescription("Search the exercise catalog by name, category or muscle group. Use the returned ids with add_exercise and replace_exercise."),
	mcp.WithString("query", mcp.Description("Search text, e.g. \"squat\" or \"back\". Empty lists the whole catalog.")),
	mcp.WithString("limit", mcp.Description("Maximum results. Defaults to 25.")),
)

var toolWorkoutEditSave = mcp.NewTool("workout_edit_save",
	mcp.WithDescription("Save every pending change to the server in dependency order. If any single change fails, nothing pending is lost: fix the problem and save again, or discard. On success the view reflects the server's new state."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
)

var toolWorkoutEditDiscard = mcp.NewTool("workout_edit_discard",
	mcp.WithDescription("Drop every pending change and revert the view to the last fetched server state. Nothing is sent to the server."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Session token")),
)

// --- Tool handlers ---

// lockSession resolves the token argument and locks the session. The
// caller must unlock. A nil *managedSession means the returned result
// already carries the error.
func (h *handlers) lockSession(req mcp.CallToolRequest) (*managedSession, *mcp.CallToolResult) {
	token, err := req.RequireString("token")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	ms, err := h.sessions.get(token)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	ms.mu.Lock()
	return ms, nil
}

// persist re-suspends the session so a killed process can resume within
// the grace window. A persist failure does not fail the edit, which is
// safe in memory; it only narrows crash recovery.
func (h *handlers) persist(ctx context.Context, ms *managedSession) {
	if err := ms.session.Suspend(ctx); err != nil {
		h.log.Warn("suspending session failed", "workout_id", ms.workoutID, "error", err)
	}
}

func (h *handlers) workoutList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	limit := 20
	if limitStr := req.GetString("limit", ""); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return mcp.NewToolResultError("limit must be a non-negative integer"), nil
		}
	}

	workouts, err := h.client.ListWorkouts(ctx, start, end, limit)
	if err != nil {
		h.log.Error("mcp workout_list", "error", err)
		return mcp.NewToolResultError("listing workouts failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutEditBegin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := requireInt64(req, "workout_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ms, err := h.sessions.begin(ctx, h.client, h.bridge, workoutID)
	if err != nil {
		h.log.Error("mcp workout_edit_begin", "workout_id", workoutID, "error", err)
		return mcp.NewToolResultError("opening workout failed: " + err.Error()), nil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	resp := struct {
		Resumed bool `json:"resumed_pending_changes"`
		editView
	}{
		Resumed:  ms.session.HasPendingChanges(),
		editView: viewOf(ms),
	}
	result, err := mcp.NewToolResultJSON(resp)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutEditView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	result, err := mcp.NewToolResultJSON(viewOf(ms))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) editWorkoutHeader(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	var patch models.HeaderPatch
	if name := req.GetString("name", ""); name != "" {
		patch.Name = &name
	}
	if notes := req.GetString("notes", ""); notes != "" {
		patch.Notes = &notes
	}
	var err error
	if patch.Intensity, err = optInt(req, "intensity"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if patch.StartedAt, err = optTime(req, "started_at"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if patch.EndedAt, err = optTime(req, "ended_at"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := ms.session.UpdateHeader(patch); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	result, err := mcp.NewToolResultJSON(viewOf(ms))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) editSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	setID, err := requireEntityID(req, "set_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch, err := setPatch(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := ms.session.EditSet(setID, patch); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	result, err := mcp.NewToolResultJSON(viewOf(ms))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) deleteSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	setID, err := requireEntityID(req, "set_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ms.session.DeleteSet(setID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	result, err := mcp.NewToolResultJSON(viewOf(ms))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) addSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	instanceID, err := requireEntityID(req, "exercise_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := setFields(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	newID, err := ms.session.AddSet(instanceID, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	resp := struct {
		NewID string `json:"new_id"`
		editView
	}{NewID: newID.String(), editView: viewOf(ms)}
	result, err := mcp.NewToolResultJSON(resp)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) deleteExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	instanceID, err := requireEntityID(req, "exercise_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ms.session.DeleteExercise(instanceID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	result, err := mcp.NewToolResultJSON(viewOf(ms))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) replaceExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	instanceID, err := requireEntityID(req, "exercise_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	definitionID, err := requireInt64(req, "definition_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := ms.session.ReplaceExercise(ctx, instanceID, definitionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	result, err := mcp.NewToolResultJSON(viewOf(ms))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) addExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	definitionID, err := requireInt64(req, "definition_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	newID, err := ms.session.AddExercise(ctx, definitionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.persist(ctx, ms)

	resp := struct {
		NewID string `json:"new_id"`
		editView
	}{NewID: newID.String(), editView: viewOf(ms)}
	result, err := mcp.NewToolResultJSON(resp)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) searchExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	limit := 25
	if limitStr := req.GetString("limit", ""); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return mcp.NewToolResultError("limit must be a non-negative integer"), nil
		}
	}

	defs, err := h.client.SearchDefinitions(ctx, query, limit)
	if err != nil {
		h.log.Error("mcp search_exercises", "error", err)
		return mcp.NewToolResultError("searching exercises failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(defs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutEditSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	err := ms.session.Save(ctx)
	switch {
	case err == nil:
	case errors.Is(err, editor.ErrStaleSnapshot):
		resp := struct {
			Status  string `json:"status"`
			Warning string `json:"warning"`
			editView
		}{
			Status:   "saved",
			Warning:  "changes were saved, but refreshing the workout failed; the view may lag until the next fetch",
			editView: viewOf(ms),
		}
		result, jerr := mcp.NewToolResultJSON(resp)
		if jerr != nil {
			return mcp.NewToolResultError("serialization failed"), nil
		}
		return result, nil
	default:
		h.log.Error("mcp workout_edit_save", "workout_id", ms.workoutID, "error", err)
		msg := "save failed: " + err.Error()
		if ce, ok := editor.AsCommitError(err); ok {
			msg = "save failed on a " + ce.Category() + " change: " + ce.Error() +
				". No pending changes were lost; retry workout_edit_save or roll back with workout_edit_discard."
		}
		return mcp.NewToolResultError(msg), nil
	}

	resp := struct {
		Status string `json:"status"`
		editView
	}{Status: "saved", editView: viewOf(ms)}
	result, err := mcp.NewToolResultJSON(resp)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutEditDiscard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, errResult := h.lockSession(req)
	if errResult != nil {
		return errResult, nil
	}
	defer ms.mu.Unlock()

	if err := ms.session.Discard(ctx); err != nil {
		h.log.Error("mcp workout_edit_discard", "workout_id", ms.workoutID, "error", err)
		return mcp.NewToolResultError("discard failed: " + err.Error()), nil
	}

	resp := struct {
		Status string `json:"status"`
		editView
	}{Status: "discarded", editView: viewOf(ms)}
	result, err := mcp.NewToolResultJSON(resp)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
