package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the tree as a JSON object preserving key order. An
// empty (or nil) tree encodes as {}.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v, _ := t.Lookup(k)
		vb, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes v; maps keep their key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMap:
		return v.tree.MarshalJSON()
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v.scalar)
	}
}

// UnmarshalJSON decodes a JSON object into t, replacing its contents. The
// legacy empty array "[]" reads as an empty tree; null, scalars and
// non-empty arrays are rejected.
func (t *Tree) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	switch {
	case v.kind == KindMap:
		*t = *v.tree
	case v.kind == KindList && len(v.list) == 0:
		*t = *New()
	default:
		return fmt.Errorf("expected a JSON object, got %s", describe(v))
	}
	return nil
}

// describe names the shape of a document that is not a mapping.
func describe(v Value) string {
	if v.IsNull() {
		return "null"
	}
	return v.kind.String()
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	dv, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*v = dv
	return nil
}

// DecodeJSON parses a single JSON document. Numbers become int64 when they
// are integral and float64 otherwise.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch x := tok.(type) {
	case json.Delim:
		switch x {
		case '{':
			t := New()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", kt)
				}
				ev, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				t.Put(key, ev)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Nested(t), nil
		case '[':
			items := []Value{}
			for dec.More() {
				ev, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, ev)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items...), nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", x)
		}
	case json.Number:
		return fromNumber(x), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
	}
}

// MarshalYAML renders the tree as an ordered YAML mapping.
func (t *Tree) MarshalYAML() (interface{}, error) {
	return treeNode(t)
}

// MarshalYAML renders v as a YAML node.
func (v Value) MarshalYAML() (interface{}, error) {
	return valueNode(v)
}

func treeNode(t *Tree) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.Keys() {
		v, _ := t.Lookup(k)
		vn, err := valueNode(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			vn,
		)
	}
	return n, nil
}

func valueNode(v Value) (*yaml.Node, error) {
	switch v.kind {
	case KindMap:
		return treeNode(v.tree)
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.list {
			en, err := valueNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v.scalar); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// UnmarshalYAML decodes a YAML mapping into t preserving key order. A
// document node without content yields an empty tree; an explicit null is
// rejected like any other non-mapping.
func (t *Tree) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 0 {
		*t = *New()
		return nil
	}
	v, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	if v.kind != KindMap {
		return fmt.Errorf("expected a YAML mapping, got %s", describe(v))
	}
	*t = *v.tree
	return nil
}

// UnmarshalYAML decodes any YAML node into v.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	dv, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	*v = dv
	return nil
}

func decodeYAMLNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.MappingNode:
		t := New()
		for i := 0; i+1 < len(node.Content); i += 2 {
			kn, vn := node.Content[i], node.Content[i+1]
			if kn.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping keys must be scalars", kn.Line)
			}
			ev, err := decodeYAMLNode(vn)
			if err != nil {
				return Value{}, err
			}
			t.Put(kn.Value, ev)
		}
		return Nested(t), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, cn := range node.Content {
			ev, err := decodeYAMLNode(cn)
			if err != nil {
				return Value{}, err
			}
			items = append(items, ev)
		}
		return List(items...), nil
	case yaml.ScalarNode:
		var raw any
		if err := node.Decode(&raw); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		v, err := ValueOf(raw)
		if err != nil {
			// timestamps and other tagged scalars keep their literal text
			return String(node.Value), nil
		}
		return v, nil
	default:
		return Null(), nil
	}
}
