package ledger

import "sync"

// Publisher receives a fresh snapshot of a collection after each mutation.
type Publisher interface {
	Publish(topic string, data any)
}

// View holds the most recently saved snapshot of a collection. It is a
// read-optimized copy; the Collection stays the source of truth.
type View[T any] struct {
	topic  string
	pub    Publisher
	items  []T
	loaded bool
	mu     sync.RWMutex
}

// NewView creates a view publishing to pub under topic. pub may be nil.
func NewView[T any](topic string, pub Publisher) *View[T] {
	return &View[T]{topic: topic, pub: pub}
}

// Refresh replaces the snapshot and publishes it
func (v *View[T]) Refresh(items []T) {
	snapshot := make([]T, len(items))
	copy(snapshot, items)

	v.mu.Lock()
	v.items = snapshot
	v.loaded = true
	v.mu.Unlock()

	if v.pub != nil {
		v.pub.Publish(v.topic, snapshot)
	}
}

// Items returns a copy of the snapshot. The boolean is false until the first
// Refresh.
func (v *View[T]) Items() ([]T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]T, len(v.items))
	copy(out, v.items)
	return out, v.loaded
}
