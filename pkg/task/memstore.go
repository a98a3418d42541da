package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for running without a database.
type MemStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tasks: make(map[string]*Task)}
}

func (s *MemStore) EnsureTable(context.Context) error { return nil }

func (s *MemStore) Create(_ context.Context, t *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Predecessors == nil {
		t.Predecessors = []string{}
	}
	cp := *t
	s.tasks[t.ID] = &cp
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *MemStore) Update(_ context.Context, id string, updates map[string]any) (*Task, error) {
	updates, err := CoerceUpdates(updates)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	for k, v := range updates {
		switch k {
		case "status":
			t.Status = v.(string)
		case "subject":
			t.Subject = v.(string)
		case "description":
			t.Description = v.(string)
		case "owner":
			t.Owner = v.(string)
		case "parent_id":
			t.ParentID = v.(string)
		case "manual":
			t.Manual = v.(bool)
		case "parallel":
			t.Parallel = v.(bool)
		case "priority":
			t.Priority = v.(*float64)
		case "duration_minutes":
			t.DurationMinutes = v.(*int)
		case "due":
			t.Due = v.(*time.Time)
		case "start_at":
			t.StartAt = v.(*time.Time)
		case "manual_eta":
			t.ManualETA = v.(*time.Time)
		case "predecessors":
			t.Predecessors = v.([]string)
		}
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (s *MemStore) Complete(_ context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("complete task %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	t.Status = StatusCompleted
	t.UpdatedAt = now
	t.CompletedAt = &now
	cp := *t
	return &cp, nil
}

// List returns tasks filtered by status (empty = all), most urgent first.
func (s *MemStore) List(_ context.Context, status string, limit int) ([]Task, error) {
	all := s.snapshot(func(t *Task) bool { return status == "" || t.Status == status })
	sort.SliceStable(all, func(i, j int) bool { return all[i].Urgency > all[j].Urgency })
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemStore) ByParent(_ context.Context, parentID string) ([]Task, error) {
	return s.snapshot(func(t *Task) bool { return t.ParentID == parentID }), nil
}

// All returns every task in creation order.
func (s *MemStore) All(context.Context) ([]Task, error) {
	return s.snapshot(func(*Task) bool { return true }), nil
}

func (s *MemStore) SaveEstimates(_ context.Context, estimates []Estimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range estimates {
		if t, ok := s.tasks[e.ID]; ok {
			t.ETAStart, t.ETA, t.Urgency = e.ETAStart, e.ETA, e.Urgency
		}
	}
	return nil
}

func (s *MemStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}

func (s *MemStore) PendingCount(context.Context) (int, error) {
	return len(s.snapshot(func(t *Task) bool { return !t.Completed() })), nil
}

func (s *MemStore) snapshot(keep func(*Task) bool) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Task{}
	for _, id := range s.order {
		if t := s.tasks[id]; keep(t) {
			out = append(out, *t)
		}
	}
	return out
}
