package snapshot

import (
	"context"
	"sync"
)

// Bus wraps a Store with in-process fan-out notification.
// When Append is called, all subscribers receive the new snapshot.
type Bus struct {
	Store
	mu   sync.RWMutex
	subs map[chan *Snapshot]struct{}
}

// NewBus creates a Bus wrapping the given store.
func NewBus(store Store) *Bus {
	return &Bus{
		Store: store,
		subs:  make(map[chan *Snapshot]struct{}),
	}
}

// Append delegates to the underlying store, then fans out to all subscribers.
func (b *Bus) Append(ctx context.Context, s *Snapshot) (*Snapshot, error) {
	saved, err := b.Store.Append(ctx, s)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- saved:
		default:
			// subscriber is behind; drop to avoid blocking Append
		}
	}
	b.mu.RUnlock()

	return saved, nil
}

// Subscribe returns a buffered channel that receives all new snapshots.
func (b *Bus) Subscribe() chan *Snapshot {
	ch := make(chan *Snapshot, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan *Snapshot) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
