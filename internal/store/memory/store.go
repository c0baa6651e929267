// Package memory provides in-process implementations of the storage
// interfaces. They back the test suite and single-binary deployments that run
// without PostgreSQL or Redis.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gosuda/aegis/internal/domain"
)

// ErrTxDone is returned when Commit or Rollback is called on a finished
// transaction.
var ErrTxDone = errors.New("memory: transaction already finished")

// Store is a transactional key-value store. Writes made through a Tx are
// staged and only become visible after Commit; Rollback discards them.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Begin opens a new transaction. Transactions on the same store are
// serialized at commit time only; concurrent transactions stage independently.
func (s *Store) Begin(_ context.Context) (domain.Tx, error) {
	return &Tx{store: s, staged: make(map[string]string)}, nil
}

// Get reads a committed value.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Len reports the number of committed keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Tx stages writes until Commit. It implements domain.Tx.
type Tx struct {
	store  *Store
	mu     sync.Mutex
	staged map[string]string
	done   bool
}

// Put stages a write. Visible only after Commit.
func (t *Tx) Put(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("memory.Tx.Put: %w", ErrTxDone)
	}
	t.staged[key] = value
	return nil
}

func (t *Tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("memory.Tx.Commit: %w", ErrTxDone)
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k, v := range t.staged {
		t.store.data[k] = v
	}
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("memory.Tx.Rollback: %w", ErrTxDone)
	}
	t.done = true
	t.staged = nil
	return nil
}
