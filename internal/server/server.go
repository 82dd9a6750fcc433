package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/meltforce/repbook/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	log      *slog.Logger
	apiKey   string
	validate *validator.Validate
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		log:      log,
		apiKey:   apiKey,
		validate: validator.New(),
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read endpoints (no auth — tsnet handles access)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/exercises/{id}", s.handleGetExercise)
		r.Get("/sets/{id}", s.handleGetSet)
		r.Get("/definitions", s.handleSearchDefinitions)
		r.Get("/definitions/{id}", s.handleGetDefinition)

		// Mutation endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/workouts", s.handleCreateWorkout)
			r.Patch("/workouts/{id}", s.handlePatchWorkout)
			r.Delete("/workouts/{id}", s.handleDeleteWorkout)
			r.Post("/workouts/{id}/exercises", s.handleAddExercise)
			r.Delete("/exercises/{id}", s.handleDeleteExercise)
			r.Put("/exercises/{id}/definition", s.handleReplaceExercise)
			r.Post("/exercises/{id}/sets", s.handleCreateSet)
			r.Patch("/sets/{id}", s.handleUpdateSet)
			r.Delete("/sets/{id}", s.handleDeleteSet)
		})
	})
}
