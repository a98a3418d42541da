package task

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"eta-planner/pkg/schedule"
)

// ErrNotFound is returned when no task has the requested ID.
var ErrNotFound = errors.New("task not found")

// CoerceUpdates converts decoded JSON values in updates to the types the
// stores persist. Unknown keys pass through untouched; a nil value clears
// an optional field.
func CoerceUpdates(updates map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(updates))
	for k, v := range updates {
		c, err := coerce(k, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = c
	}
	return out, nil
}

func coerce(key string, v any) (any, error) {
	switch key {
	case "status":
		s, ok := v.(string)
		if !ok || !slices.Contains(Statuses(), s) {
			return nil, fmt.Errorf("invalid status %v", v)
		}
		return s, nil
	case "subject", "description", "owner", "parent_id":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil
	case "manual", "parallel":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil
	case "priority":
		if p, ok := v.(*float64); ok {
			return p, nil
		}
		if v == nil {
			return (*float64)(nil), nil
		}
		f, err := number(v)
		if err != nil {
			return nil, err
		}
		return &f, nil
	case "duration_minutes":
		if p, ok := v.(*int); ok {
			if p != nil && *p < 0 {
				return nil, fmt.Errorf("expected whole minutes, got %d", *p)
			}
			return p, nil
		}
		if v == nil {
			return (*int)(nil), nil
		}
		f, err := number(v)
		if err != nil {
			return nil, err
		}
		if f < 0 || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected whole minutes, got %v", v)
		}
		n := int(f)
		return &n, nil
	case "due", "start_at", "manual_eta":
		if p, ok := v.(*time.Time); ok {
			return p, nil
		}
		if v == nil {
			return (*time.Time)(nil), nil
		}
		t, err := schedule.ParseTime(v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	case "predecessors":
		return stringList(v)
	}
	return v, nil
}

// Statuses returns the valid task statuses.
func Statuses() []string {
	return []string{StatusPending, StatusInProgress, StatusCompleted, StatusBlocked}
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func stringList(v any) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected task IDs, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of task IDs, got %T", v)
}
