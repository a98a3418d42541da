// Package snapshot keeps a hash-chained, append-only log of computed
// schedules.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eta-planner/pkg/forest"
	"eta-planner/pkg/schedule"
)

// Run outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrNotFound is returned when no snapshot has the requested ID.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot records one scheduling run.
type Snapshot struct {
	ID        string          `json:"id"`        // UUID v7 (time-ordered)
	Timestamp time.Time       `json:"timestamp"` // when the run was recorded
	Source    string          `json:"source"`    // planner, api, cli
	Start     time.Time       `json:"start"`     // schedule start of the run
	Status    string          `json:"status"`    // ok, failed
	Error     string          `json:"error,omitempty"`
	Tasks     int             `json:"tasks"`
	Summary   json.RawMessage `json:"summary"` // forest.Summary as JSON
	Hash      string          `json:"hash"`    // SHA-256 of canonical form
	PrevHash  string          `json:"prev_hash"`
}

// Store is the contract for snapshot persistence.
type Store interface {
	Append(ctx context.Context, s *Snapshot) (*Snapshot, error)
	Get(ctx context.Context, id string) (*Snapshot, error)
	Recent(ctx context.Context, limit int) ([]Snapshot, error)
	Since(ctx context.Context, afterID string, limit int) ([]Snapshot, error)
	Count(ctx context.Context) (int, error)
	VerifyChain(ctx context.Context) error
	EnsureTable(ctx context.Context) error
}

// FromSchedule builds an unsaved snapshot of a successful run.
func FromSchedule(source string, start time.Time, s *schedule.Schedule) (*Snapshot, error) {
	summary, err := json.Marshal(forest.Summarize(s))
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return &Snapshot{
		Source:  source,
		Start:   start,
		Status:  StatusOK,
		Tasks:   s.Len(),
		Summary: summary,
	}, nil
}

// Failed builds an unsaved snapshot of a run that aborted with err.
func Failed(source string, start time.Time, err error) *Snapshot {
	return &Snapshot{
		Source:  source,
		Start:   start,
		Status:  StatusFailed,
		Error:   err.Error(),
		Summary: json.RawMessage(`{}`),
	}
}

// Verify checks the hash chain of snapshots given in chronological order.
func Verify(snapshots []Snapshot) error {
	prevHash := ""
	for i, s := range snapshots {
		if s.PrevHash != prevHash {
			return fmt.Errorf("snapshot %d (%s): prev_hash mismatch: got %s, want %s", i, s.ID, s.PrevHash, prevHash)
		}
		if want := s.computeHash(); s.Hash != want {
			return fmt.Errorf("snapshot %d (%s): hash mismatch: got %s, want %s", i, s.ID, s.Hash, want)
		}
		prevHash = s.Hash
	}
	return nil
}

func (s *Snapshot) computeHash() string {
	return computeHash(s.PrevHash, s.ID, s.Source, s.Status, s.Error, s.Tasks, s.Start, s.Timestamp, s.Summary)
}

// computeHash computes a SHA-256 hash for chain integrity.
func computeHash(prevHash, id, source, status, errText string, tasks int, start, timestamp time.Time, summary []byte) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%d|%s",
		prevHash, id, source, status, errText, tasks, start.UnixNano(), timestamp.UnixNano(), string(summary))
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h)
}
