package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceUpdates(t *testing.T) {
	got, err := CoerceUpdates(map[string]any{
		"status":           "blocked",
		"priority":         float64(40),
		"duration_minutes": float64(90),
		"due":              "2022-03-01",
		"start_at":         nil,
		"predecessors":     []any{"a", "b"},
		"manual":           true,
		"ignored":          42,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusBlocked, got["status"])
	assert.Equal(t, 40.0, *got["priority"].(*float64))
	assert.Equal(t, 90, *got["duration_minutes"].(*int))
	assert.Equal(t, 2022, got["due"].(*time.Time).Year())
	assert.Nil(t, got["start_at"].(*time.Time))
	assert.Equal(t, []string{"a", "b"}, got["predecessors"])
	assert.Equal(t, true, got["manual"])
	assert.Equal(t, 42, got["ignored"])
}

func TestCoerceUpdatesErrors(t *testing.T) {
	bad := []map[string]any{
		{"status": "done-ish"},
		{"priority": "high"},
		{"duration_minutes": 1.5},
		{"duration_minutes": float64(-10)},
		{"due": "next tuesday"},
		{"predecessors": []any{1}},
		{"predecessors": "a"},
		{"manual": "yes"},
		{"owner": 3},
		{"priority": new(int)},
		{"duration_minutes": new(float64)},
		{"due": new(float64)},
		{"manual_eta": "someday"},
	}
	for _, u := range bad {
		_, err := CoerceUpdates(u)
		assert.Error(t, err, u)
	}
}

func TestTaskHelpers(t *testing.T) {
	var tk Task
	assert.Nil(t, tk.Duration())
	assert.False(t, tk.Completed())

	mins := 45
	tk.DurationMinutes = &mins
	tk.Status = StatusCompleted
	assert.Equal(t, 45*time.Minute, *tk.Duration())
	assert.True(t, tk.Completed())
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	a, err := s.Create(ctx, &Task{Subject: "a"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, StatusPending, a.Status)
	b, err := s.Create(ctx, &Task{Subject: "b", ParentID: a.ID})
	require.NoError(t, err)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Update(ctx, "missing", map[string]any{"owner": "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	upd, err := s.Update(ctx, b.ID, map[string]any{"owner": "ana", "priority": float64(10)})
	require.NoError(t, err)
	assert.Equal(t, "ana", upd.Owner)
	assert.Equal(t, 10.0, *upd.Priority)

	kids, err := s.ByParent(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, b.ID, kids[0].ID)

	require.NoError(t, s.SaveEstimates(ctx, []Estimate{{ID: b.ID, Urgency: 5}, {ID: "gone"}}))
	list, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, []string{list[0].ID, list[1].ID}, "most urgent first")

	done, err := s.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, done.CompletedAt)

	pending, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, all[0].ID, "creation order")

	completed, err := s.List(ctx, StatusCompleted, 10)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, a.ID, completed[0].ID)
}

func TestCoerceUpdatesIsIdempotent(t *testing.T) {
	once, err := CoerceUpdates(map[string]any{
		"priority":         float64(3),
		"duration_minutes": float64(30),
		"due":              "2022-03-01",
		"manual_eta":       "2022-03-02T15:00:00Z",
		"predecessors":     []any{"x"},
	})
	require.NoError(t, err)
	twice, err := CoerceUpdates(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMemStoreUpdateRejectsMismatchedPointer(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	created, err := s.Create(ctx, &Task{Subject: "x"})
	require.NoError(t, err)

	mins := 30
	require.NotPanics(t, func() {
		_, err = s.Update(ctx, created.ID, map[string]any{"priority": &mins})
	})
	assert.Error(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Priority)
}
