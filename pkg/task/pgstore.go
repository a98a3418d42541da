package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const taskColumns = `id, subject, description, status, priority, owner, parent_id, predecessors,
	due, start_at, duration_minutes, manual, parallel, manual_eta, eta_start, eta, urgency,
	created_at, updated_at, completed_at`

// updatable maps Update keys to their columns.
var updatable = map[string]string{
	"status":           "status",
	"subject":          "subject",
	"description":      "description",
	"priority":         "priority",
	"owner":            "owner",
	"parent_id":        "parent_id",
	"predecessors":     "predecessors",
	"due":              "due",
	"start_at":         "start_at",
	"duration_minutes": "duration_minutes",
	"manual":           "manual",
	"parallel":         "parallel",
	"manual_eta":       "manual_eta",
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id               TEXT PRIMARY KEY,
			subject          TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'pending',
			priority         DOUBLE PRECISION,
			owner            TEXT NOT NULL DEFAULT '',
			parent_id        TEXT NOT NULL DEFAULT '',
			predecessors     TEXT[] DEFAULT '{}',
			due              TIMESTAMPTZ,
			start_at         TIMESTAMPTZ,
			duration_minutes INTEGER,
			manual           BOOLEAN NOT NULL DEFAULT FALSE,
			parallel         BOOLEAN NOT NULL DEFAULT FALSE,
			manual_eta       TIMESTAMPTZ,
			eta_start        TIMESTAMPTZ,
			eta              TIMESTAMPTZ,
			urgency          DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at       TIMESTAMPTZ DEFAULT NOW(),
			updated_at       TIMESTAMPTZ DEFAULT NOW(),
			completed_at     TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `ALTER TABLE tasks ADD COLUMN IF NOT EXISTS manual_eta TIMESTAMPTZ`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id) WHERE parent_id != ''`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner) WHERE owner != ''`)
	return err
}

// Create inserts a new task.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Predecessors == nil {
		t.Predecessors = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, subject, description, status, priority, owner, parent_id, predecessors,
			due, start_at, duration_minutes, manual, parallel, manual_eta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, t.Subject, t.Description, t.Status, t.Priority, t.Owner, t.ParentID, t.Predecessors,
		t.Due, t.StartAt, t.DurationMinutes, t.Manual, t.Parallel, t.ManualETA, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, notFound(err))
	}
	return t, nil
}

// Update modifies task fields. Supported keys are those in updatable;
// others are ignored.
func (s *PgStore) Update(ctx context.Context, id string, updates map[string]any) (*Task, error) {
	now := time.Now().Truncate(time.Microsecond)
	updates, err := CoerceUpdates(updates)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		if _, ok := updatable[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	setClauses := []string{"updated_at = $1"}
	args := []any{now}
	for _, k := range keys {
		args = append(args, updates[k])
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", updatable[k], len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), len(args), taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, notFound(err))
	}
	return t, nil
}

// Complete marks a task as completed.
func (s *PgStore) Complete(ctx context.Context, id string) (*Task, error) {
	now := time.Now().Truncate(time.Microsecond)
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET status = 'completed', updated_at = $1, completed_at = $1
		WHERE id = $2
		RETURNING `+taskColumns, now, id))
	if err != nil {
		return nil, fmt.Errorf("complete task %s: %w", id, notFound(err))
	}
	return t, nil
}

// List returns tasks filtered by status (empty = all), most urgent first.
func (s *PgStore) List(ctx context.Context, status string, limit int) ([]Task, error) {
	var query string
	var args []any
	if status != "" {
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY urgency DESC, created_at ASC LIMIT $2`
		args = []any{status, limit}
	} else {
		query = `SELECT ` + taskColumns + ` FROM tasks ORDER BY urgency DESC, created_at ASC LIMIT $1`
		args = []any{limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// ByParent returns all subtasks of a parent task.
func (s *PgStore) ByParent(ctx context.Context, parentID string) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+`
		FROM tasks WHERE parent_id = $1 ORDER BY created_at ASC, id ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("tasks by parent: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// All returns every task in creation order, the order forests are built in.
func (s *PgStore) All(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("all tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// SaveEstimates writes computed timing onto tasks in one transaction.
func (s *PgStore) SaveEstimates(ctx context.Context, estimates []Estimate) error {
	if len(estimates) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save estimates: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, e := range estimates {
		b.Queue(`UPDATE tasks SET eta_start = $1, eta = $2, urgency = $3 WHERE id = $4`,
			e.ETAStart, e.ETA, e.Urgency, e.ID)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("save estimates: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save estimates: commit: %w", err)
	}
	return nil
}

// Count returns total task count.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

// PendingCount returns count of tasks not yet completed.
func (s *PgStore) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE status != 'completed'`).Scan(&n)
	return n, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Subject, &t.Description, &t.Status, &t.Priority, &t.Owner, &t.ParentID, &t.Predecessors,
		&t.Due, &t.StartAt, &t.DurationMinutes, &t.Manual, &t.Parallel, &t.ManualETA, &t.ETAStart, &t.ETA, &t.Urgency,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
