package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for running without a database.
type MemStore struct {
	mu    sync.RWMutex
	chain []Snapshot
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) EnsureTable(context.Context) error { return nil }

func (s *MemStore) Append(_ context.Context, snap *Snapshot) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *snap
	out.ID = uuid.Must(uuid.NewV7()).String()
	out.Timestamp = time.Now()
	if len(out.Summary) == 0 {
		out.Summary = json.RawMessage(`{}`)
	}
	out.PrevHash = ""
	if n := len(s.chain); n > 0 {
		out.PrevHash = s.chain[n-1].Hash
	}
	out.Hash = out.computeHash()
	s.chain = append(s.chain, out)
	return &out, nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.chain {
		if s.chain[i].ID == id {
			cp := s.chain[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get snapshot %s: %w", id, ErrNotFound)
}

// Recent returns the most recent snapshots, newest first.
func (s *MemStore) Recent(_ context.Context, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Snapshot{}
	for i := len(s.chain) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.chain[i])
	}
	return out, nil
}

// Since returns snapshots recorded after the given ID, oldest first.
func (s *MemStore) Since(_ context.Context, afterID string, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Snapshot{}
	found := false
	for _, snap := range s.chain {
		if found && len(out) < limit {
			out = append(out, snap)
		}
		if snap.ID == afterID {
			found = true
		}
	}
	return out, nil
}

func (s *MemStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chain), nil
}

func (s *MemStore) VerifyChain(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Verify(s.chain)
}
