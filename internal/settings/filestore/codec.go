package filestore

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"settings-lite/internal/tree"
)

// Codec serializes the whole setting tree to and from file contents.
type Codec interface {
	Name() string
	Marshal(t *tree.Tree) ([]byte, error)
	Unmarshal(data []byte, t *tree.Tree) error
}

// JSON is the default codec. An empty tree is written as {}.
var JSON Codec = jsonCodec{}

// YAML writes an ordered YAML mapping. An empty tree is written as {}.
var YAML Codec = yamlCodec{}

// CodecFor picks a codec from the file extension: .yaml and .yml use YAML,
// anything else JSON.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

type jsonCodec struct {
	indent string
}

func (c jsonCodec) Name() string { return "json" }

func (c jsonCodec) Marshal(t *tree.Tree) ([]byte, error) {
	raw, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if c.indent == "" {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", c.indent); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (c jsonCodec) Unmarshal(data []byte, t *tree.Tree) error {
	return t.UnmarshalJSON(data)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(t *tree.Tree) ([]byte, error) {
	return yaml.Marshal(t)
}

// Unmarshal goes through a yaml.Node because yaml.v3 zeroes the target
// without calling UnmarshalYAML when the document is null.
func (yamlCodec) Unmarshal(data []byte, t *tree.Tree) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Kind == 0 {
		// comments only
		*t = *tree.New()
		return nil
	}
	return t.UnmarshalYAML(&doc)
}
