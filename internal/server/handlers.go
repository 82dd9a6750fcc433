package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/repbook/internal/models"
	"github.com/meltforce/repbook/internal/storage"
)

type createWorkoutRequest struct {
	Name      string     `json:"name" validate:"required"`
	Notes     string     `json:"notes"`
	StartedAt time.Time  `json:"started_at" validate:"required"`
	EndedAt   *time.Time `json:"ended_at"`
	Intensity int        `json:"intensity" validate:"gte=0,lte=5"`
}

type patchWorkoutRequest struct {
	Name      *string    `json:"name" validate:"omitempty,min=1"`
	Notes     *string    `json:"notes"`
	Intensity *int       `json:"intensity" validate:"omitempty,gte=1,lte=5"`
	StartedAt *time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

type addExerciseRequest struct {
	DefinitionID int64 `json:"definition_id" validate:"required,gt=0"`
}

type replaceExerciseRequest struct {
	DefinitionID int64 `json:"definition_id" validate:"required,gt=0"`
}

type createSetRequest struct {
	WeightKg    *float64   `json:"weight_kg" validate:"omitempty,gte=0"`
	Reps        *int       `json:"reps" validate:"omitempty,gte=0"`
	DurationSec *int       `json:"duration_sec" validate:"omitempty,gte=0"`
	DistanceM   *float64   `json:"distance_m" validate:"omitempty,gte=0"`
	Note        string     `json:"note"`
	CompletedAt *time.Time `json:"completed_at"`
}

type updateSetRequest struct {
	WeightKg       *float64   `json:"weight_kg" validate:"omitempty,gte=0"`
	Reps           *int       `json:"reps" validate:"omitempty,gte=0"`
	DurationSec    *int       `json:"duration_sec" validate:"omitempty,gte=0"`
	DistanceM      *float64   `json:"distance_m" validate:"omitempty,gte=0"`
	Note           *string    `json:"note"`
	CompletedAt    *time.Time `json:"completed_at"`
	ClearCompleted bool       `json:"clear_completed"`
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
	}

	workouts, err := s.db.ListWorkouts(r.Context(), start, end, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, err := s.db.GetWorkoutSnapshot(r.Context(), workoutID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var req createWorkoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	workout := models.Workout{
		Name:      req.Name,
		Notes:     req.Notes,
		StartedAt: req.StartedAt,
		Intensity: req.Intensity,
	}
	if req.EndedAt != nil {
		workout.EndedAt = *req.EndedAt
	}

	id, err := s.db.CreateWorkout(r.Context(), workout)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	workout.ID = id
	writeJSON(w, http.StatusCreated, workout)
}

func (s *Server) handlePatchWorkout(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchWorkoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	patch := models.HeaderPatch{
		Name:      req.Name,
		Notes:     req.Notes,
		Intensity: req.Intensity,
		StartedAt: req.StartedAt,
		EndedAt:   req.EndedAt,
	}
	if patch.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fields to change"})
		return
	}

	if err := s.db.UpdateWorkoutHeader(r.Context(), workoutID, patch); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteWorkout(r.Context(), workoutID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req addExerciseRequest
	if !s.decode(w, r, &req) {
		return
	}

	inst, err := s.db.AddExerciseInstance(r.Context(), workoutID, req.DefinitionID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r)
	if !ok {
		return
	}
	inst, err := s.db.GetExerciseInstance(r.Context(), instanceID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(w, r)
	if !ok {
		return
	}
	set, err := s.db.GetSet(r.Context(), setID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteExerciseInstance(r.Context(), instanceID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReplaceExercise(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req replaceExerciseRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.db.ReplaceExerciseDefinition(r.Context(), instanceID, req.DefinitionID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSet(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req createSetRequest
	if !s.decode(w, r, &req) {
		return
	}
	fields := models.SetFields{
		WeightKg:    req.WeightKg,
		Reps:        req.Reps,
		DurationSec: req.DurationSec,
		DistanceM:   req.DistanceM,
		Note:        req.Note,
		CompletedAt: req.CompletedAt,
	}

	set, err := s.db.CreateSet(r.Context(), instanceID, fields)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateSetRequest
	if !s.decode(w, r, &req) {
		return
	}
	patch := models.SetPatch{
		WeightKg:       req.WeightKg,
		Reps:           req.Reps,
		DurationSec:    req.DurationSec,
		DistanceM:      req.DistanceM,
		Note:           req.Note,
		CompletedAt:    req.CompletedAt,
		ClearCompleted: req.ClearCompleted,
	}
	if patch.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fields to change"})
		return
	}

	if err := s.db.UpdateSet(r.Context(), setID, patch); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteSet(r.Context(), setID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearchDefinitions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	defs, err := s.db.SearchDefinitions(r.Context(), query, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	definitionID, ok := pathID(w, r)
	if !ok {
		return
	}
	def, err := s.db.GetDefinition(r.Context(), definitionID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// decode reads, parses and validates a JSON request body, writing the
// error response itself when something is wrong.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// writeStoreError maps storage errors to status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// pathID parses the {id} route parameter, writing the error response
// itself when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 90 days
		end = time.Now()
		start = end.AddDate(0, 0, -90)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
