package tree

import "strconv"

// Entry is one leaf of a flattened tree.
type Entry struct {
	Path  string
	Value Value
}

// Flatten converts t into dotted-path entries in insertion order. Lists use
// their index as a path segment ("array.0"). Empty maps and lists have no
// leaves and produce no entries.
func Flatten(t *Tree) []Entry {
	var out []Entry
	flattenTree(t, "", &out)
	return out
}

// FlattenMap is Flatten keyed by path.
func FlattenMap(t *Tree) map[string]Value {
	entries := Flatten(t)
	out := make(map[string]Value, len(entries))
	for _, e := range entries {
		out[e.Path] = e.Value
	}
	return out
}

func flattenTree(t *Tree, prefix string, out *[]Entry) {
	for _, k := range t.Keys() {
		v, _ := t.Lookup(k)
		flattenValue(v, prefix+k, out)
	}
}

func flattenValue(v Value, path string, out *[]Entry) {
	switch v.kind {
	case KindMap:
		flattenTree(v.tree, path+Separator, out)
	case KindList:
		for i, e := range v.list {
			flattenValue(e, path+Separator+strconv.Itoa(i), out)
		}
	default:
		*out = append(*out, Entry{Path: path, Value: v})
	}
}

// Unflatten rebuilds a nested tree from dotted-path entries. Every segment
// becomes a mapping key, so "array.0" yields {"array": {"0": ...}}.
func Unflatten(entries []Entry) (*Tree, error) {
	t := New()
	for _, e := range entries {
		if err := Set(t, e.Path, e.Value); err != nil {
			return nil, err
		}
	}
	return t, nil
}
