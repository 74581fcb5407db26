package cmd

import (
	"encoding/json"
	"io"

	"settings-lite/internal/tree"
)

// parseValue turns a command-line argument into a setting value. Valid JSON
// (numbers, booleans, null, arrays, objects, quoted strings) is decoded;
// anything else is kept as a plain string.
func parseValue(arg string, forceString bool) tree.Value {
	if forceString {
		return tree.String(arg)
	}
	v, err := tree.DecodeJSON([]byte(arg))
	if err != nil {
		return tree.String(arg)
	}
	return v
}

// writeJSON encodes v followed by a newline.
func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
