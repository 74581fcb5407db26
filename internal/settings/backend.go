// Package settings implements a persistent, hierarchical key/value settings
// store on top of interchangeable storage backends.
//
// A Store keeps the whole setting tree in memory. It loads lazily on first
// access, records mutations with a dirty flag and writes the tree back to its
// Backend in a single flush when Save is called.
package settings

import (
	"context"

	"settings-lite/internal/tree"
)

// Backend persists a setting tree. Implementations convert between the
// nested tree and their own representation (a serialized blob, table rows).
type Backend interface {
	// Read returns the persisted tree. A backend with nothing stored returns
	// an empty tree. Failures wrap ErrRead.
	Read(ctx context.Context) (*tree.Tree, error)

	// Write persists data, replacing what was stored before. Failures wrap
	// ErrWrite.
	Write(ctx context.Context, data *tree.Tree) error
}

// Pruner is implemented by backends that cannot represent an empty nested
// container. After Forget the store removes ancestors left empty so the
// in-memory tree matches what such a backend will read back.
type Pruner interface {
	PruneEmptyAncestors() bool
}

// BackendFunc adapts a pair of functions to the Backend interface.
type BackendFunc struct {
	ReadFunc  func(ctx context.Context) (*tree.Tree, error)
	WriteFunc func(ctx context.Context, data *tree.Tree) error
}

func (f BackendFunc) Read(ctx context.Context) (*tree.Tree, error) {
	return f.ReadFunc(ctx)
}

func (f BackendFunc) Write(ctx context.Context, data *tree.Tree) error {
	return f.WriteFunc(ctx, data)
}

func prunes(b Backend) bool {
	p, ok := b.(Pruner)
	return ok && p.PruneEmptyAncestors()
}
