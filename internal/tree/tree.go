// Package tree implements the nested setting tree and the dotted-path
// helpers used to read and mutate it.
//
// A Tree is an ordered mapping from string keys to Values. Insertion order is
// kept so that serialized output is deterministic; lookups are by exact key.
// Keys are opaque strings, "1234" is never treated as a number.
package tree

import "sort"

// Tree is an ordered mapping of setting keys to values. The zero value is
// not usable; call New. A nil *Tree reads as empty.
type Tree struct {
	keys []string
	vals map[string]Value
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{vals: make(map[string]Value)}
}

// FromMap builds a tree from a plain map. Map iteration order is random, so
// keys are inserted in sorted order.
func FromMap(m map[string]any) (*Tree, error) {
	t := New()
	for _, k := range sortedKeys(m) {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, err
		}
		t.Put(k, v)
	}
	return t, nil
}

// MustFromMap is FromMap that panics on unsupported values.
func MustFromMap(m map[string]any) *Tree {
	t, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of top-level keys.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the top-level keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Lookup returns the value stored directly under key.
func (t *Tree) Lookup(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.vals[key]
	return v, ok
}

// Put stores v under key. An existing key keeps its position.
func (t *Tree) Put(key string, v Value) {
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (t *Tree) Delete(key string) bool {
	if t == nil {
		return false
	}
	if _, ok := t.vals[key]; !ok {
		return false
	}
	delete(t.vals, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every key.
func (t *Tree) Clear() {
	t.keys = nil
	t.vals = make(map[string]Value)
}

// Clone returns a deep copy. Cloning nil yields an empty tree.
func (t *Tree) Clone() *Tree {
	out := New()
	if t == nil {
		return out
	}
	out.keys = make([]string, len(t.keys))
	copy(out.keys, t.keys)
	for k, v := range t.vals {
		out.vals[k] = v.Clone()
	}
	return out
}

// Equal reports deep equality ignoring key order. nil equals an empty tree.
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	for _, k := range t.Keys() {
		ov, ok := o.Lookup(k)
		if !ok {
			return false
		}
		if !t.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}

// Map converts the tree to plain Go values.
func (t *Tree) Map() map[string]any {
	out := make(map[string]any, t.Len())
	if t == nil {
		return out
	}
	for _, k := range t.keys {
		out[k] = t.vals[k].Interface()
	}
	return out
}

// Merge copies every value of src into t, recursing into maps present on
// both sides. Values from src win.
func (t *Tree) Merge(src *Tree) {
	for _, k := range src.Keys() {
		sv, _ := src.Lookup(k)
		if dv, ok := t.vals[k]; ok && dv.kind == KindMap && sv.kind == KindMap {
			dv.tree.Merge(sv.tree)
			continue
		}
		t.Put(k, sv.Clone())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
