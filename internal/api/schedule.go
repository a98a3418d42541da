package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"eta-planner/pkg/annotate"
	"eta-planner/pkg/forest"
	"eta-planner/pkg/schedule"
	"eta-planner/pkg/snapshot"
)

type scheduleResponse struct {
	Start    time.Time          `json:"start"`
	Tasks    []forest.View      `json:"tasks"`
	Summary  forest.Summary     `json:"summary"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
}

// handleScheduleStored schedules the task store. With save=true the
// estimates are written back and the run is recorded.
func (s *Server) handleScheduleStored(w http.ResponseWriter, r *http.Request) {
	start, ok := queryStart(w, r)
	if !ok {
		return
	}
	compute := s.planner.Compute
	if queryBool(r, "save", false) {
		compute = s.planner.Plan
	}
	res, err := compute(r.Context(), start)
	if err != nil {
		writeRunError(w, err)
		return
	}
	if queryBool(r, "annotate", false) {
		annotate.Forest(res.Forest)
	}
	writeJSON(w, 200, scheduleResponse{
		Start:    res.Start,
		Tasks:    forest.Views(res.Forest),
		Summary:  forest.Summarize(res.Schedule),
		Snapshot: res.Snapshot,
	})
}

// handleScheduleForest schedules a forest posted as JSON and returns it
// annotated (unless annotate=false) with the computed timelines. Nothing
// is stored.
func (s *Server) handleScheduleForest(w http.ResponseWriter, r *http.Request) {
	start, ok := queryStart(w, r)
	if !ok {
		return
	}
	if start.IsZero() {
		start = time.Now()
	}
	f, err := forest.DecodeJSON(r.Body, "request")
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	opts := s.opts
	opts.Start = start
	sched, err := schedule.Run(f, opts)
	if err != nil {
		writeRunError(w, err)
		return
	}
	if queryBool(r, "annotate", true) {
		annotate.Forest(f)
	}
	writeJSON(w, 200, scheduleResponse{
		Start:   start,
		Tasks:   forest.Views(f),
		Summary: forest.Summarize(sched),
	})
}

func queryStart(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("start")
	if v == "" {
		return time.Time{}, true
	}
	t, err := schedule.ParseTime(v)
	if err != nil {
		writeError(w, 400, "invalid start: "+err.Error())
		return time.Time{}, false
	}
	return t, true
}

func queryBool(r *http.Request, key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return defaultVal
	}
	return b
}

// writeRunError reports engine rejections as 422 with their details and
// anything else as a server error.
func writeRunError(w http.ResponseWriter, err error) {
	var dup *schedule.DuplicateKeyError
	var cycle *schedule.CycleError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, 422, map[string]any{"error": err.Error(), "keys": dup.Keys})
	case errors.As(err, &cycle):
		writeJSON(w, 422, map[string]any{"error": err.Error(), "key": cycle.Key, "path": cycle.Path})
	default:
		writeError(w, 500, err.Error())
	}
}
