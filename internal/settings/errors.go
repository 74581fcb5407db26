package settings

import (
	"errors"
	"fmt"

	"settings-lite/internal/tree"
)

var (
	// ErrNonMappingSegment is returned when a dotted key must descend
	// through a value that is not a mapping.
	ErrNonMappingSegment = tree.ErrNonMappingSegment

	// ErrRead is returned when a backend cannot produce a valid tree.
	ErrRead = errors.New("settings: read failed")

	// ErrWrite is returned when a backend cannot persist the tree.
	ErrWrite = errors.New("settings: write failed")

	// ErrConfiguration is returned when a backend is constructed with an
	// unusable target.
	ErrConfiguration = errors.New("settings: invalid configuration")
)

// ReadError wraps err with ErrRead unless it already carries it.
func ReadError(err error) error {
	if err == nil || errors.Is(err, ErrRead) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRead, err)
}

// WriteError wraps err with ErrWrite unless it already carries it.
func WriteError(err error) error {
	if err == nil || errors.Is(err, ErrWrite) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrWrite, err)
}
