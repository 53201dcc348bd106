// Package memory provides a thread-safe in-memory implementation of
// store.Store. Suitable for testing, demos, and single-process use cases.
package memory

import (
	"context"
	"sync"

	"github.com/jmcleod/goodtogo/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu   sync.RWMutex
	snap store.Snapshot
	set  bool
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.set = true
	return nil
}

func (s *Store) Load(ctx context.Context) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return store.Snapshot{}, store.ErrNoSnapshot
	}
	return s.snap, nil
}
