package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindScalar Kind = iota
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a setting value: a scalar, an ordered list of values, or a
// nested Tree. The zero Value is the null scalar.
//
// Scalars are always one of nil, bool, int64, float64 or string.
type Value struct {
	kind   Kind
	scalar any
	list   []Value
	tree   *Tree
}

// Null returns the null scalar.
func Null() Value { return Value{} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Int returns an integer scalar.
func Int(i int64) Value { return Value{kind: KindScalar, scalar: i} }

// Float returns a floating point scalar.
func Float(f float64) Value { return Value{kind: KindScalar, scalar: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindScalar, scalar: b} }

// List returns a list value holding vs.
func List(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindList, list: vs}
}

// Nested returns a map value wrapping t. A nil t becomes an empty tree.
func Nested(t *Tree) Value {
	if t == nil {
		t = New()
	}
	return Value{kind: KindMap, tree: t}
}

// ValueOf converts a plain Go value into a Value. Supported inputs are nil,
// booleans, all integer and float kinds, strings, json.Number, slices of
// those, map[string]any / map[string]string, *Tree and Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Tree:
		return Nested(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return fromNumber(x), nil
	case []Value:
		return List(x...), nil
	case []string:
		out := make([]Value, len(x))
		for i, s := range x {
			out[i] = String(s)
		}
		return List(out...), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			ev, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = ev
		}
		return List(out...), nil
	case map[string]string:
		t := New()
		for _, k := range sortedKeys(x) {
			t.Put(k, String(x[k]))
		}
		return Nested(t), nil
	case map[string]any:
		t, err := FromMap(x)
		if err != nil {
			return Value{}, err
		}
		return Nested(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported setting value type %T", v)
	}
}

// MustValueOf is ValueOf that panics on unsupported input.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

func fromNumber(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	if f, err := n.Float64(); err == nil {
		return Float(f)
	}
	return String(n.String())
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null scalar.
func (v Value) IsNull() bool { return v.kind == KindScalar && v.scalar == nil }

// Scalar returns the scalar payload, or nil for lists and maps.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Items returns the list payload, or nil when v is not a list.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Tree returns the nested tree, or nil when v is not a map.
func (v Value) Tree() *Tree {
	if v.kind != KindMap {
		return nil
	}
	return v.tree
}

// Interface converts v back to plain Go values (map[string]any, []any and
// scalars).
func (v Value) Interface() any {
	switch v.kind {
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		return v.tree.Map()
	default:
		return v.scalar
	}
}

// String renders v the way a single text column stores it: null is the
// empty string, numbers use their shortest decimal form and lists/maps are
// JSON encoded.
func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		switch x := v.scalar.(type) {
		case nil:
			return ""
		case string:
			return x
		case bool:
			return strconv.FormatBool(x)
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		default:
			return fmt.Sprint(x)
		}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Equal reports deep equality. Map key order is not significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.tree.Equal(o.tree)
	default:
		return v.scalar == o.scalar
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, e := range v.list {
			out[i] = e.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, tree: v.tree.Clone()}
	default:
		return v
	}
}

// GoString makes test failure output readable.
func (v Value) GoString() string {
	if v.kind == KindScalar {
		return fmt.Sprintf("%#v", v.scalar)
	}
	b, _ := json.Marshal(v)
	return string(b)
}
