package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestJSON_PreservesKeyOrder(t *testing.T) {
	tr := New()
	tr.Put("zeta", String("z"))
	tr.Put("alpha", Nested(MustFromMap(map[string]any{"b": int64(2), "a": true})))
	tr.Put("list", List(Int(1), Float(2.5), Null()))

	got, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":{"a":true,"b":2},"list":[1,2.5,null]}`, string(got))
}

func TestJSON_EmptyTreeIsObject(t *testing.T) {
	got, err := json.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestJSON_RoundTrip(t *testing.T) {
	in := `{"b":"x","a":{"n":12,"f":0.5,"t":false,"z":null},"l":["p",{"q":1}]}`
	var tr Tree
	require.NoError(t, json.Unmarshal([]byte(in), &tr))
	assert.Equal(t, []string{"b", "a", "l"}, tr.Keys())
	assert.True(t, Int(12).Equal(Get(&tr, "a.n", Null())))
	assert.True(t, Has(&tr, "a.z"))

	out, err := json.Marshal(&tr)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestJSON_LegacyEmptyArray(t *testing.T) {
	var tr Tree
	require.NoError(t, json.Unmarshal([]byte("[]"), &tr))
	assert.Equal(t, 0, tr.Len())
}

func TestJSON_Invalid(t *testing.T) {
	var tr Tree
	assert.Error(t, json.Unmarshal([]byte(`{"a":`), &tr))
	assert.Error(t, json.Unmarshal([]byte(`"scalar"`), &tr))
}

func TestJSON_NotAnObject(t *testing.T) {
	tests := map[string]string{
		"null":      "expected a JSON object, got null",
		`["a","b"]`: "expected a JSON object, got list",
		"12":        "expected a JSON object, got scalar",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			tr := MustFromMap(map[string]any{"keep": "me"})
			err := tr.UnmarshalJSON([]byte(in))
			require.Error(t, err)
			assert.Equal(t, want, err.Error())
			assert.Equal(t, map[string]any{"keep": "me"}, tr.Map(), "tree left untouched")
		})
	}
}

func TestDecodeJSON_TrailingData(t *testing.T) {
	_, err := DecodeJSON([]byte(`{} {}`))
	assert.Error(t, err)
}

func TestYAML_RoundTrip(t *testing.T) {
	tr := New()
	require.NoError(t, Set(tr, "zeta", String("z")))
	require.NoError(t, Set(tr, "nest.one", Int(1)))
	require.NoError(t, Set(tr, "nest.list", List(String("a"), Bool(true))))

	out, err := yaml.Marshal(tr)
	require.NoError(t, err)
	assert.Equal(t, "zeta: z\nnest:\n    one: 1\n    list:\n        - a\n        - true\n", string(out))

	back := New()
	require.NoError(t, yaml.Unmarshal(out, back))
	assert.True(t, tr.Equal(back))
	assert.Equal(t, []string{"zeta", "nest"}, back.Keys())
}

func TestYAML_EmptyDocument(t *testing.T) {
	back := New()
	require.NoError(t, yaml.Unmarshal([]byte("{}\n"), back))
	assert.Equal(t, 0, back.Len())

	out, err := yaml.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(out))
}

func TestYAML_NotAMapping(t *testing.T) {
	back := New()
	assert.Error(t, yaml.Unmarshal([]byte("- a\n- b\n"), back))
}

func TestYAML_NullDocument(t *testing.T) {
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("~\n"), &doc))

	err := New().UnmarshalYAML(&doc)
	require.Error(t, err)
	assert.Equal(t, "expected a YAML mapping, got null", err.Error())

	empty := MustFromMap(map[string]any{"a": 1})
	require.NoError(t, empty.UnmarshalYAML(&yaml.Node{Kind: yaml.DocumentNode}))
	assert.Equal(t, 0, empty.Len())
}
