package settings

import (
	"context"
	"log/slog"

	"settings-lite/internal/tree"
)

// Store is the in-memory view of a backend's settings.
//
// A Store is not safe for concurrent use. Two stores over the same backend
// do not coordinate: the last Save wins.
type Store struct {
	backend  Backend
	defaults *tree.Tree
	logger   *slog.Logger

	data      *tree.Tree // what reads see
	updated   *tree.Tree // values written since the last load or save
	persisted *tree.Tree // last tree read from or written to the backend
	dirty     bool
	loaded    bool
}

// Option configures a Store.
type Option func(*Store)

// WithDefaults sets the table consulted by Get when a key is absent.
func WithDefaults(defaults *tree.Tree) Option {
	return func(s *Store) {
		s.defaults = defaults.Clone()
	}
}

// WithLogger sets the logger used for load/save debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns an unloaded store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		defaults:  tree.New(),
		logger:    slog.Default(),
		data:      tree.New(),
		updated:   tree.New(),
		persisted: tree.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDefaults replaces the defaults table.
func (s *Store) SetDefaults(defaults *tree.Tree) {
	s.defaults = defaults.Clone()
}

// Defaults returns a copy of the defaults table.
func (s *Store) Defaults() *tree.Tree {
	return s.defaults.Clone()
}

// Dirty reports whether there are unsaved mutations.
func (s *Store) Dirty() bool { return s.dirty }

// Loaded reports whether the backend has been read.
func (s *Store) Loaded() bool { return s.loaded }

// Get returns the value at key. When key is absent the defaults table entry
// is returned, or null when there is none.
func (s *Store) Get(ctx context.Context, key string) (tree.Value, error) {
	return s.GetDefault(ctx, key, tree.Get(s.defaults, key, tree.Null()))
}

// GetDefault returns the value at key, or def when key is absent. def takes
// precedence over the defaults table.
func (s *Store) GetDefault(ctx context.Context, key string, def tree.Value) (tree.Value, error) {
	if err := s.Load(ctx, false); err != nil {
		return tree.Value{}, err
	}
	if !tree.Has(s.data, key) {
		return def, nil
	}
	return tree.Get(s.data, key, def).Clone(), nil
}

// GetMany resolves several keys at once into a tree shaped by the keys'
// paths. A missing key falls back to defs[key] when given, then to the
// defaults table, then to null.
func (s *Store) GetMany(ctx context.Context, keys []string, defs map[string]tree.Value) (*tree.Tree, error) {
	if err := s.Load(ctx, false); err != nil {
		return nil, err
	}
	out := tree.New()
	for _, key := range keys {
		def, ok := defs[key]
		if !ok {
			def = tree.Get(s.defaults, key, tree.Null())
		}
		if err := tree.Set(out, key, tree.Get(s.data, key, def).Clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Has reports whether key is present. Defaults are not consulted.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.Load(ctx, false); err != nil {
		return false, err
	}
	return tree.Has(s.data, key), nil
}

// Set stores value at key.
func (s *Store) Set(ctx context.Context, key string, value tree.Value) error {
	if err := s.Load(ctx, false); err != nil {
		return err
	}
	return s.set(key, value)
}

// SetMany stores every top-level entry of values. Entry keys may be dotted.
func (s *Store) SetMany(ctx context.Context, values *tree.Tree) error {
	if err := s.Load(ctx, false); err != nil {
		return err
	}
	for _, key := range values.Keys() {
		v, _ := values.Lookup(key)
		if err := s.set(key, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) set(key string, value tree.Value) error {
	if err := tree.Set(s.data, key, value.Clone()); err != nil {
		return err
	}
	if throughList(s.data, key) || tree.Set(s.updated, key, value.Clone()) != nil {
		// updated cannot mirror this path on its own
		s.resync(key)
	}
	s.dirty = true
	return nil
}

// resync copies the top-level branch holding key from data into updated.
func (s *Store) resync(key string) {
	root := tree.Split(key)[0]
	if v, ok := s.data.Lookup(root); ok {
		s.updated.Put(root, v.Clone())
	}
}

// Forget removes key. The store is marked dirty even when key was absent.
func (s *Store) Forget(ctx context.Context, key string) error {
	if err := s.Load(ctx, false); err != nil {
		return err
	}
	if err := tree.Forget(s.data, key); err != nil {
		return err
	}
	if throughList(s.data, key) {
		s.resync(key)
	} else {
		_ = tree.Forget(s.updated, key)
	}
	if prunes(s.backend) {
		tree.PruneEmpty(s.data, key)
		tree.PruneEmpty(s.updated, key)
	}
	s.dirty = true
	return nil
}

// ForgetAll removes every key.
func (s *Store) ForgetAll(ctx context.Context) error {
	if err := s.Load(ctx, false); err != nil {
		return err
	}
	s.data.Clear()
	s.updated.Clear()
	s.dirty = true
	return nil
}

// All returns a copy of the whole tree. Defaults are not merged in.
func (s *Store) All(ctx context.Context) (*tree.Tree, error) {
	if err := s.Load(ctx, false); err != nil {
		return nil, err
	}
	return s.data.Clone(), nil
}

// Updated returns a copy of the values written since the last load or save.
func (s *Store) Updated() *tree.Tree {
	return s.updated.Clone()
}

// Persisted returns a copy of the last tree known to be stored.
func (s *Store) Persisted() *tree.Tree {
	return s.persisted.Clone()
}

// Load reads the backend unless the store is already loaded and force is
// false. Values set before the read are laid over the loaded tree. On error
// the store stays unloaded.
func (s *Store) Load(ctx context.Context, force bool) error {
	if s.loaded && !force {
		return nil
	}
	data, err := s.backend.Read(ctx)
	if err != nil {
		return ReadError(err)
	}
	if data == nil {
		data = tree.New()
	}
	s.persisted = data.Clone()
	data.Merge(s.updated)
	s.data = data
	s.loaded = true
	s.logger.Debug("settings loaded",
		slog.Int("keys", data.Len()),
		slog.Int("pending", s.updated.Len()),
		slog.Bool("forced", force))
	return nil
}

// Save writes the tree to the backend if there are unsaved mutations. On
// error the store stays dirty so Save can be retried.
func (s *Store) Save(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	if err := s.backend.Write(ctx, s.data.Clone()); err != nil {
		return WriteError(err)
	}
	s.dirty = false
	s.persisted = s.data.Clone()
	s.updated = tree.New()
	s.logger.Debug("settings saved", slog.Int("keys", s.data.Len()))
	return nil
}

// Close saves pending changes. It is the hook to call at request or process
// end.
func (s *Store) Close(ctx context.Context) error {
	return s.Save(ctx)
}

// throughList reports whether key descends through a list element in t.
func throughList(t *tree.Tree, key string) bool {
	segs := tree.Split(key)
	for n := 1; n < len(segs); n++ {
		if tree.Get(t, tree.Join(segs[:n]...), tree.Null()).Kind() == tree.KindList {
			return true
		}
	}
	return false
}
