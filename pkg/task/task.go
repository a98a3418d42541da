package task

import (
	"context"
	"time"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusBlocked    = "blocked"
)

// Task is a persisted unit of work. Nil pointer fields are unset and take
// the scheduling defaults or their parent's value.
type Task struct {
	ID              string     `json:"id"`
	Subject         string     `json:"subject"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`             // pending, in_progress, completed, blocked
	Priority        *float64   `json:"priority,omitempty"` // higher = more urgent, may be negative
	Owner           string     `json:"owner"`              // contended person or resource
	ParentID        string     `json:"parent_id"`          // for subtasks
	Predecessors    []string   `json:"predecessors"`       // task IDs that must finish first
	Due             *time.Time `json:"due,omitempty"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Manual          bool       `json:"manual"`
	Parallel        bool       `json:"parallel"`
	// ManualETA is the declared finish of a manual task. The planner never
	// writes it.
	ManualETA *time.Time `json:"manual_eta,omitempty"`

	// Computed by the planner. Output only: never read back as input.
	ETAStart *time.Time `json:"eta_start,omitempty"`
	ETA      *time.Time `json:"eta,omitempty"`
	Urgency  float64    `json:"urgency"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the task is marked done.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}

// Duration returns the declared duration, or nil when unset.
func (t *Task) Duration() *time.Duration {
	if t.DurationMinutes == nil {
		return nil
	}
	d := time.Duration(*t.DurationMinutes) * time.Minute
	return &d
}

// Estimate is the computed timing written back onto a task after a run.
type Estimate struct {
	ID       string
	ETAStart *time.Time
	ETA      *time.Time
	Urgency  float64
}

// Store is the contract for task persistence.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, id string, updates map[string]any) (*Task, error)
	Complete(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, status string, limit int) ([]Task, error)
	ByParent(ctx context.Context, parentID string) ([]Task, error)
	All(ctx context.Context) ([]Task, error)
	SaveEstimates(ctx context.Context, estimates []Estimate) error
	Count(ctx context.Context) (int, error)
	PendingCount(ctx context.Context) (int, error)
	EnsureTable(ctx context.Context) error
}
