package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed Store with hash-chained integrity.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const snapshotColumns = `id, timestamp, source, start_at, status, error, tasks, summary, hash, prev_hash`

// EnsureTable creates the snapshots table if it doesn't exist. The summary
// is kept as json, not jsonb, so its bytes hash the same when read back.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			timestamp  TIMESTAMPTZ NOT NULL,
			source     TEXT NOT NULL,
			start_at   TIMESTAMPTZ NOT NULL,
			status     TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			tasks      INTEGER NOT NULL DEFAULT 0,
			summary    JSON NOT NULL,
			hash       TEXT NOT NULL,
			prev_hash  TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp_id ON snapshots(timestamp, id)`)
	return err
}

// lockChain conflicts with itself but not with readers.
const lockChain = `LOCK TABLE snapshots IN SHARE ROW EXCLUSIVE MODE`

// Append stores a snapshot, assigning its ID and timestamp and linking it
// to the previous one.
func (s *PgStore) Append(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	out := *snap
	out.Start = out.Start.Truncate(time.Microsecond)
	if len(out.Summary) == 0 {
		out.Summary = json.RawMessage(`{}`)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Appenders in every process queue here until the head is read and the
	// new row is committed, so the chain never forks.
	if _, err := tx.Exec(ctx, lockChain); err != nil {
		return nil, fmt.Errorf("lock snapshots: %w", err)
	}
	err = tx.QueryRow(ctx, `SELECT hash FROM snapshots ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&out.PrevHash)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		out.PrevHash = ""
	case err != nil:
		return nil, fmt.Errorf("read chain head: %w", err)
	}
	out.ID = uuid.Must(uuid.NewV7()).String()
	out.Timestamp = time.Now().Truncate(time.Microsecond)
	out.Hash = out.computeHash()

	_, err = tx.Exec(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::json, $9, $10)`,
		out.ID, out.Timestamp, out.Source, out.Start, out.Status, out.Error, out.Tasks, string(out.Summary), out.Hash, out.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return &out, nil
}

// Get retrieves a single snapshot by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	snap, err := scanSnapshot(s.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return snap, nil
}

// Recent returns the most recent snapshots, newest first.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	return s.scanMany(ctx, `SELECT `+snapshotColumns+`
		FROM snapshots ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
}

// Since returns snapshots recorded after the given ID, oldest first.
func (s *PgStore) Since(ctx context.Context, afterID string, limit int) ([]Snapshot, error) {
	return s.scanMany(ctx, `SELECT `+snapshotColumns+`
		FROM snapshots WHERE (timestamp, id) > (SELECT timestamp, id FROM snapshots WHERE id = $1)
		ORDER BY timestamp ASC, id ASC LIMIT $2`, afterID, limit)
}

// Count returns the total number of snapshots.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// VerifyChain walks the entire chain chronologically and verifies hash integrity.
func (s *PgStore) VerifyChain(ctx context.Context) error {
	all, err := s.scanMany(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("verify chain query: %w", err)
	}
	return Verify(all)
}

func (s *PgStore) scanMany(ctx context.Context, query string, args ...any) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var snap Snapshot
	var summary []byte
	err := row.Scan(&snap.ID, &snap.Timestamp, &snap.Source, &snap.Start, &snap.Status, &snap.Error,
		&snap.Tasks, &summary, &snap.Hash, &snap.PrevHash)
	if err != nil {
		return nil, err
	}
	snap.Summary = json.RawMessage(summary)
	return &snap, nil
}
