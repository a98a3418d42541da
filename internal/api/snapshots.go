package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"eta-planner/pkg/snapshot"
)

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 20)

	if after := r.URL.Query().Get("after"); after != "" {
		snaps, err := s.snapshots.Since(ctx, after, limit)
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, snaps)
		return
	}
	snaps, err := s.snapshots.Recent(ctx, limit)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, snaps)
}

func (s *Server) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, 404, err.Error())
			return
		}
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, snap)
}

func (s *Server) handleSnapshotVerify(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshots.VerifyChain(r.Context()); err != nil {
		writeJSON(w, 409, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{"valid": true})
}

// handleSnapshotStream sends every new snapshot as a server-sent event.
// With after=<id>, snapshots recorded since that one are sent first.
// Bus notifications and a poll ticker both trigger a read of the store,
// so snapshots appended by another process still reach the client.
func (s *Server) handleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	ch := s.snapshots.Subscribe()
	defer s.snapshots.Unsubscribe(ch)

	ctx := r.Context()
	cur := &cursor{last: r.URL.Query().Get("after")}
	if cur.last != "" {
		if _, err := s.snapshots.Get(ctx, cur.last); errors.Is(err, snapshot.ErrNotFound) {
			cur.last = ""
		}
	}
	if cur.last == "" {
		head, err := s.snapshots.Recent(ctx, 1)
		if err != nil {
			s.log.Warn("SSE head", "error", err)
		} else if len(head) > 0 {
			cur.last = head[0].ID
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()
	s.streamSince(ctx, w, cur)
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()
	poll := time.NewTicker(s.poll)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			s.streamSince(ctx, w, cur)
			flusher.Flush()
		case <-poll.C:
			if s.streamSince(ctx, w, cur) > 0 {
				flusher.Flush()
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// cursor is the last snapshot a stream has delivered. An empty cursor
// means the store was empty when the stream began.
type cursor struct {
	last string
}

const streamBatch = 100

// streamSince writes the snapshots recorded after the cursor, oldest
// first, and advances it. It returns the number of events written.
func (s *Server) streamSince(ctx context.Context, w http.ResponseWriter, cur *cursor) int {
	var (
		snaps []snapshot.Snapshot
		err   error
	)
	if cur.last == "" {
		snaps, err = s.snapshots.Recent(ctx, streamBatch)
		slices.Reverse(snaps)
	} else {
		snaps, err = s.snapshots.Since(ctx, cur.last, streamBatch)
	}
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("SSE catch-up", "error", err)
		}
		return 0
	}
	for i := range snaps {
		writeEvent(w, &snaps[i])
		cur.last = snaps[i].ID
	}
	return len(snaps)
}

func writeEvent(w http.ResponseWriter, snap *snapshot.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\ndata: %s\n\n", snap.ID, data)
}
