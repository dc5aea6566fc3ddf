package store

import (
	"go.uber.org/atomic"

	"github.com/i474232898/homehub/internal/weather"
)

// SnapshotStore is a concurrency-safe single-slot cache for the latest
// weather snapshot. Get never blocks; Set replaces the whole value at once.
type SnapshotStore struct {
	current atomic.Pointer[weather.Snapshot]
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Get returns a copy of the current snapshot, or false if none was stored yet.
func (s *SnapshotStore) Get() (weather.Snapshot, bool) {
	p := s.current.Load()
	if p == nil {
		return weather.Snapshot{}, false
	}
	return *p, true
}

// Set atomically replaces the current snapshot. Concurrent calls resolve
// last-writer-wins by completion order.
func (s *SnapshotStore) Set(snapshot weather.Snapshot) {
	s.current.Store(&snapshot)
}
