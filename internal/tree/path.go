package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator splits a dotted path into segments.
const Separator = "."

var (
	// ErrNonMappingSegment is returned when a path must descend through a
	// value that is not a mapping.
	ErrNonMappingSegment = errors.New("non-mapping segment encountered")

	// ErrEmptyPath is returned by mutations given an empty path.
	ErrEmptyPath = errors.New("empty setting path")
)

// Split returns the segments of path. A path without a separator is a single
// segment.
func Split(path string) []string {
	return strings.Split(path, Separator)
}

// Join is the inverse of Split.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Get resolves path in t, returning def as soon as a segment is missing or
// the current node cannot be descended into. The empty path returns the whole
// tree. List elements are addressed by a decimal index segment.
func Get(t *Tree, path string, def Value) Value {
	if path == "" {
		return Nested(t)
	}
	cur := Nested(t)
	for _, seg := range Split(path) {
		next, ok := child(cur, seg)
		if !ok {
			return def
		}
		cur = next
	}
	return cur
}

// GetMany resolves every path and returns a new tree holding each result at
// its (nested) path. Missing paths resolve to def.
func GetMany(t *Tree, paths []string, def Value) (*Tree, error) {
	out := New()
	for _, p := range paths {
		if err := Set(out, p, Get(t, p, def).Clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Has reports whether path exists in t. A key holding null is present.
func Has(t *Tree, path string) bool {
	if path == "" {
		return true
	}
	cur := Nested(t)
	for _, seg := range Split(path) {
		next, ok := child(cur, seg)
		if !ok {
			return false
		}
		cur = next
	}
	return true
}

// Set stores v at path, creating intermediate mappings as needed. An
// existing list element can be addressed by its decimal index. Set fails
// with ErrNonMappingSegment when an intermediate segment holds a scalar or
// names a list element that does not exist; t is left untouched in that case.
func Set(t *Tree, path string, v Value) error {
	if path == "" {
		return ErrEmptyPath
	}
	_, err := setIn(Nested(t), Split(path), 0, v)
	return err
}

// setIn stores v at segs[depth:] below c and returns c with the change
// applied. Nothing is written until the whole descent has succeeded.
func setIn(c Value, segs []string, depth int, v Value) (Value, error) {
	seg := segs[depth]
	last := depth == len(segs)-1
	switch c.kind {
	case KindMap:
		if last {
			c.tree.Put(seg, v)
			return c, nil
		}
		next, ok := c.tree.Lookup(seg)
		if !ok {
			next = Nested(New())
		}
		next, err := setIn(next, segs, depth+1, v)
		if err != nil {
			return c, err
		}
		c.tree.Put(seg, next)
		return c, nil
	case KindList:
		i, ok := listIndex(c, seg)
		if !ok {
			return c, fmt.Errorf("%w: no element %q in list %q", ErrNonMappingSegment, seg, Join(segs[:depth]...))
		}
		if last {
			c.list[i] = v
			return c, nil
		}
		next, err := setIn(c.list[i], segs, depth+1, v)
		if err != nil {
			return c, err
		}
		c.list[i] = next
		return c, nil
	default:
		return c, fmt.Errorf("%w: %q in %q", ErrNonMappingSegment, Join(segs[:depth]...), Join(segs...))
	}
}

// Forget removes the value at path. Removing a list element shifts the
// elements after it down by one. A missing intermediate segment or list
// element is a no-op; a scalar intermediate segment fails with
// ErrNonMappingSegment.
func Forget(t *Tree, path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	_, err := forgetIn(Nested(t), Split(path), 0)
	return err
}

func forgetIn(c Value, segs []string, depth int) (Value, error) {
	seg := segs[depth]
	last := depth == len(segs)-1
	switch c.kind {
	case KindMap:
		if last {
			c.tree.Delete(seg)
			return c, nil
		}
		next, ok := c.tree.Lookup(seg)
		if !ok {
			return c, nil
		}
		next, err := forgetIn(next, segs, depth+1)
		if err != nil {
			return c, err
		}
		c.tree.Put(seg, next)
		return c, nil
	case KindList:
		i, ok := listIndex(c, seg)
		if !ok {
			return c, nil
		}
		if last {
			items := make([]Value, 0, len(c.list)-1)
			items = append(items, c.list[:i]...)
			c.list = append(items, c.list[i+1:]...)
			return c, nil
		}
		next, err := forgetIn(c.list[i], segs, depth+1)
		if err != nil {
			return c, err
		}
		c.list[i] = next
		return c, nil
	default:
		return c, fmt.Errorf("%w: %q in %q", ErrNonMappingSegment, Join(segs[:depth]...), Join(segs...))
	}
}

// PruneEmpty walks upward from path removing ancestors that became empty
// mappings, stopping at the first non-empty ancestor or the root.
func PruneEmpty(t *Tree, path string) {
	segs := Split(path)
	for n := len(segs) - 1; n > 0; n-- {
		parent := Join(segs[:n]...)
		v := Get(t, parent, Null())
		if v.kind != KindMap || v.tree.Len() > 0 {
			return
		}
		if err := Forget(t, parent); err != nil {
			return
		}
	}
}

func child(v Value, seg string) (Value, bool) {
	switch v.kind {
	case KindMap:
		return v.tree.Lookup(seg)
	case KindList:
		i, ok := listIndex(v, seg)
		if !ok {
			return Value{}, false
		}
		return v.list[i], true
	default:
		return Value{}, false
	}
}

// listIndex parses seg as the canonical decimal index of an element of the
// list v.
func listIndex(v Value, seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(v.list) || strconv.Itoa(i) != seg {
		return 0, false
	}
	return i, true
}
