// Package memstore implements an in-memory settings backend with no I/O,
// for tests and ephemeral use.
package memstore

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"settings-lite/internal/tree"
)

// Store keeps the persisted tree in process memory.
type Store struct {
	mu   sync.Mutex
	data *tree.Tree
}

// New returns a backend whose Read initially yields a copy of initial
// (or an empty tree when initial is nil).
func New(initial *tree.Tree) *Store {
	return &Store{data: initial.Clone()}
}

// Read returns a copy of the stored tree.
func (s *Store) Read(ctx context.Context) (*tree.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone(), nil
}

// Write replaces the stored tree with a copy of data.
func (s *Store) Write(ctx context.Context, data *tree.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data.Clone()
	return nil
}

var shared = xsync.NewMapOf[string, *Store]()

// Shared returns the process-wide backend registered under name, creating
// an empty one on first use. Every store opened with the same name sees the
// same data.
func Shared(name string) *Store {
	s, _ := shared.LoadOrCompute(name, func() *Store {
		return New(nil)
	})
	return s
}

// Drop removes the named shared backend.
func Drop(name string) {
	shared.Delete(name)
}
