// Package mcp exposes workout editing over the Model Context Protocol.
//
// Tools operate on an in-memory editing session per workout: edits
// accumulate locally and reach the server only on workout_edit_save.
// After every staged change the session is also written to the handoff
// store, so a killed process can pick up where it left off.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/repbook/internal/editor"
	"github.com/meltforce/repbook/internal/handoff"
	"github.com/meltforce/repbook/internal/remote"
)

// The editing session talks to the server through the HTTP client.
var _ editor.Store = (*remote.Client)(nil)

// New creates an MCP server with all tools and resources registered.
func New(client *remote.Client, bridge handoff.Store, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepBook", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepBook workout editor. Start with workout_list to find a workout, then workout_edit_begin to open an editing session. Edits are staged locally and shown by workout_edit_view; nothing reaches the server until workout_edit_save. Use search_exercises to find catalog ids for add_exercise and replace_exercise."),
	)

	h := &handlers{client: client, bridge: bridge, sessions: newSessionManager(), log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolWorkoutList, Handler: h.workoutList},
		server.ServerTool{Tool: toolWorkoutEditBegin, Handler: h.workoutEditBegin},
		server.ServerTool{Tool: toolWorkoutEditView, Handler: h.workoutEditView},
		server.ServerTool{Tool: toolEditWorkoutHeader, Handler: h.editWorkoutHeader},
		server.ServerTool{Tool: toolEditSet, Handler: h.editSet},
		server.ServerTool{Tool: toolDeleteSet, Handler: h.deleteSet},
		server.ServerTool{Tool: toolAddSet, Handler: h.addSet},
		server.ServerTool{Tool: toolDeleteExercise, Handler: h.deleteExercise},
		server.ServerTool{Tool: toolReplaceExercise, Handler: h.replaceExercise},
		server.ServerTool{Tool: toolAddExercise, Handler: h.addExercise},
		server.ServerTool{Tool: toolSearchExercises, Handler: h.searchExercises},
		server.ServerTool{Tool: toolWorkoutEditSave, Handler: h.workoutEditSave},
		server.ServerTool{Tool: toolWorkoutEditDiscard, Handler: h.workoutEditDiscard},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	client   *remote.Client
	bridge   handoff.Store
	sessions *sessionManager
	log      *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"repbook://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"repbook://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises that can be added to a workout, with categories and muscle groups"),
	mcp.WithMIMEType("application/json"),
)
