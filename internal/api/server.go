// Package api serves the task store, the scheduler and the snapshot log
// over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"eta-planner/internal/logging"
	"eta-planner/pkg/planner"
	"eta-planner/pkg/schedule"
	"eta-planner/pkg/snapshot"
	"eta-planner/pkg/task"
)

// Feed is a snapshot store that also notifies subscribers of appends.
type Feed interface {
	snapshot.Store
	Subscribe() chan *snapshot.Snapshot
	Unsubscribe(ch chan *snapshot.Snapshot)
}

// Server is the HTTP API server.
type Server struct {
	tasks     task.Store
	snapshots Feed
	planner   *planner.Planner
	opts      schedule.Options
	log       *slog.Logger
	mux       *http.ServeMux

	// heartbeat is the idle interval between SSE keepalive comments.
	heartbeat time.Duration
	// poll is how often a stream rereads the store for snapshots the bus
	// did not announce.
	poll time.Duration
}

// New creates a new Server. opts is the engine configuration for every
// schedule the server computes.
func New(tasks task.Store, snapshots Feed, opts schedule.Options, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = log
	}
	s := &Server{
		tasks:     tasks,
		snapshots: snapshots,
		planner:   planner.New(tasks, snapshots, planner.Config{Schedule: opts, Source: "api", Logger: log}),
		opts:      opts,
		log:       log,
		mux:       http.NewServeMux(),
		heartbeat: 15 * time.Second,
		poll:      2 * time.Second,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleTaskComplete)

	// Schedule
	s.mux.HandleFunc("GET /api/schedule", s.handleScheduleStored)
	s.mux.HandleFunc("POST /api/schedule", s.handleScheduleForest)

	// Snapshots
	s.mux.HandleFunc("GET /api/snapshots", s.handleSnapshotList)
	s.mux.HandleFunc("GET /api/snapshots/verify", s.handleSnapshotVerify)
	s.mux.HandleFunc("GET /api/snapshots/stream", s.handleSnapshotStream)
	s.mux.HandleFunc("GET /api/snapshots/{id}", s.handleSnapshotGet)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskCount, _ := s.tasks.Count(ctx)
	pendingTasks, _ := s.tasks.PendingCount(ctx)
	snapshotCount, _ := s.snapshots.Count(ctx)

	status := map[string]any{
		"tasks":         taskCount,
		"pending_tasks": pendingTasks,
		"snapshots":     snapshotCount,
	}
	if recent, err := s.snapshots.Recent(ctx, 1); err == nil && len(recent) > 0 {
		status["last_run"] = map[string]any{
			"id":        recent[0].ID,
			"timestamp": recent[0].Timestamp,
			"status":    recent[0].Status,
		}
	}
	writeJSON(w, 200, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
