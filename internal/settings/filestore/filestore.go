// Package filestore implements a settings backend that keeps the whole
// setting tree in one JSON or YAML file.
//
// Writes replace the file atomically (temporary file + rename) while holding
// an exclusive flock on "<path>.lock", so readers never observe a partially
// written document.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"settings-lite/internal/settings"
	"settings-lite/internal/tree"
)

// Store implements settings.Backend on a single file.
type Store struct {
	path  string
	codec Codec
}

// Option configures a Store.
type Option func(*Store)

// WithCodec overrides the codec chosen from the file extension.
func WithCodec(c Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// WithIndent pretty-prints JSON output with the given indent string. It has
// no effect on other codecs.
func WithIndent(indent string) Option {
	return func(s *Store) {
		if _, ok := s.codec.(jsonCodec); ok {
			s.codec = jsonCodec{indent: indent}
		}
	}
}

// New creates a file backend for path. The parent directory and an empty
// document are created when missing. Construction fails with
// settings.ErrConfiguration when the file cannot be created or written.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty settings path", settings.ErrConfiguration)
	}
	s := &Store{path: path, codec: CodecFor(path)}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating settings directory: %w", settings.ErrConfiguration, err)
	}

	// The lock file lives next to the document, so creating it proves the
	// directory accepts the temporary files used by atomicWrite.
	lock, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not writable: %w", settings.ErrConfiguration, filepath.Dir(path), err)
	}
	lock.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		empty, err := s.codec.Marshal(tree.New())
		if err != nil {
			return nil, fmt.Errorf("%w: encoding empty settings: %w", settings.ErrConfiguration, err)
		}
		if err := atomicWrite(path, empty); err != nil {
			return nil, fmt.Errorf("%w: %w", settings.ErrConfiguration, err)
		}
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", settings.ErrConfiguration, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not writable: %w", settings.ErrConfiguration, path, err)
	}
	f.Close()
	return s, nil
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Read parses the file. A missing or blank file reads as an empty tree;
// anything that does not parse fails with settings.ErrRead.
func (s *Store) Read(ctx context.Context) (*tree.Tree, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return tree.New(), nil
		}
		return nil, fmt.Errorf("%w: reading %s: %w", settings.ErrRead, s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return tree.New(), nil
	}

	t := tree.New()
	if err := s.codec.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("%w: invalid data in %s: %w", settings.ErrRead, s.path, err)
	}
	return t, nil
}

// Write serializes data and atomically replaces the file.
func (s *Store) Write(ctx context.Context, data *tree.Tree) error {
	raw, err := s.codec.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encoding settings: %w", settings.ErrWrite, err)
	}
	return s.withLock(func() error {
		if err := atomicWrite(s.path, raw); err != nil {
			return fmt.Errorf("%w: %w", settings.ErrWrite, err)
		}
		return nil
	})
}

// lockPath returns the path to the lock file used for flock-based coordination.
func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// withLock runs fn while holding an exclusive lock on the lock file.
func (s *Store) withLock(fn func() error) error {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("%w: opening settings lock: %w", settings.ErrWrite, err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("%w: acquiring settings lock: %w", settings.ErrWrite, err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

// atomicWrite replaces the settings document at path with data. The
// document is staged in a temporary sibling, synced, then renamed over path;
// the temporary file is removed on any failure.
func atomicWrite(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %d bytes to %s: %w", len(data), tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	// CreateTemp creates files with mode 0600.
	if err := os.Chmod(tmp, 0644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Compile-time check that Store implements settings.Backend.
var _ settings.Backend = (*Store)(nil)
