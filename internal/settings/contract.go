package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settings-lite/internal/tree"
)

// Opener returns a fresh Backend over the same underlying storage every time
// it is called, the way a new process would see it.
type Opener func() Backend

// RunContractTests runs the backend contract suite. Every backend package
// calls this with a factory that hands out an Opener over empty storage.
func RunContractTests(t *testing.T, factory func(t *testing.T) Opener) {
	t.Run("InitiallyEmpty", func(t *testing.T) { testInitiallyEmpty(t, factory(t)) })
	t.Run("WrittenChangesAreSaved", func(t *testing.T) { testWrittenChangesAreSaved(t, factory(t)) })
	t.Run("NestedKeysAreNested", func(t *testing.T) { testNestedKeysAreNested(t, factory(t)) })
	t.Run("NonMappingSegment", func(t *testing.T) { testNonMappingSegment(t, factory(t)) })
	t.Run("ForgetKey", func(t *testing.T) { testForgetKey(t, factory(t)) })
	t.Run("ForgetNestedKey", func(t *testing.T) { testForgetNestedKey(t, factory(t)) })
	t.Run("ForgetAll", func(t *testing.T) { testForgetAll(t, factory(t)) })
	t.Run("DefaultsRespected", func(t *testing.T) { testDefaultsRespected(t, factory(t)) })
	t.Run("ListIndices", func(t *testing.T) { testListIndices(t, factory(t)) })
	t.Run("NumericKeys", func(t *testing.T) { testNumericKeys(t, factory(t)) })
	t.Run("IdempotentSave", func(t *testing.T) { testIdempotentSave(t, factory(t)) })
	t.Run("EndToEnd", func(t *testing.T) { testEndToEnd(t, factory(t)) })
}

func assertStoreEquals(t *testing.T, open Opener, s *Store, want map[string]any) {
	t.Helper()
	ctx := context.Background()

	got, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got.Map(), "before save")

	require.NoError(t, s.Save(ctx))

	fresh := New(open())
	got, err = fresh.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got.Map(), "after reopening")
}

func mustSet(t *testing.T, s *Store, key, value string) {
	t.Helper()
	require.NoError(t, s.Set(context.Background(), key, tree.String(value)))
}

func testInitiallyEmpty(t *testing.T, open Opener) {
	got, err := New(open()).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func testWrittenChangesAreSaved(t *testing.T, open Opener) {
	ctx := context.Background()
	s := New(open())
	mustSet(t, s, "foo", "bar")
	require.NoError(t, s.Save(ctx))

	got, err := New(open()).Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", got.String())
}

func testNestedKeysAreNested(t *testing.T, open Opener) {
	s := New(open())
	mustSet(t, s, "foo.bar", "baz")
	assertStoreEquals(t, open, s, map[string]any{"foo": map[string]any{"bar": "baz"}})
}

func testNonMappingSegment(t *testing.T, open Opener) {
	s := New(open())
	mustSet(t, s, "foo", "bar")
	err := s.Set(context.Background(), "foo.bar", tree.String("baz"))
	assert.ErrorIs(t, err, ErrNonMappingSegment)
}

func testForgetKey(t *testing.T, open Opener) {
	ctx := context.Background()
	s := New(open())
	mustSet(t, s, "foo", "bar")
	mustSet(t, s, "bar", "baz")
	assertStoreEquals(t, open, s, map[string]any{"foo": "bar", "bar": "baz"})

	require.NoError(t, s.Forget(ctx, "foo"))
	assertStoreEquals(t, open, s, map[string]any{"bar": "baz"})
}

func testForgetNestedKey(t *testing.T, open Opener) {
	ctx := context.Background()
	s := New(open())
	mustSet(t, s, "foo.bar", "baz")
	mustSet(t, s, "foo.baz", "bar")
	mustSet(t, s, "bar.foo", "baz")
	assertStoreEquals(t, open, s, map[string]any{
		"foo": map[string]any{"bar": "baz", "baz": "bar"},
		"bar": map[string]any{"foo": "baz"},
	})

	require.NoError(t, s.Forget(ctx, "foo.bar"))
	assertStoreEquals(t, open, s, map[string]any{
		"foo": map[string]any{"baz": "bar"},
		"bar": map[string]any{"foo": "baz"},
	})

	require.NoError(t, s.Forget(ctx, "bar.foo"))
	want := map[string]any{
		"foo": map[string]any{"baz": "bar"},
		"bar": map[string]any{},
	}
	if prunes(open()) {
		delete(want, "bar")
	}
	assertStoreEquals(t, open, s, want)
}

func testForgetAll(t *testing.T, open Opener) {
	ctx := context.Background()
	seed := New(open())
	mustSet(t, seed, "foo", "bar")
	require.NoError(t, seed.Save(ctx))

	s := New(open())
	assertStoreEquals(t, open, s, map[string]any{"foo": "bar"})
	require.NoError(t, s.ForgetAll(ctx))
	assertStoreEquals(t, open, s, map[string]any{})
}

func testDefaultsRespected(t *testing.T, open Opener) {
	ctx := context.Background()
	seed := New(open())
	mustSet(t, seed, "foo", "bar")
	require.NoError(t, seed.Save(ctx))

	defaults := tree.MustFromMap(map[string]any{"foo": "default", "bar": "default"})
	s := New(open(), WithDefaults(defaults))
	assertStoreEquals(t, open, s, map[string]any{"foo": "bar"})

	got, err := s.GetMany(ctx, []string{"foo", "bar"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "bar", "bar": "default"}, got.Map())

	v, err := s.Get(ctx, "bar")
	require.NoError(t, err)
	assert.Equal(t, "default", v.String())
}

// Relational backends store list elements as index-keyed rows, so the
// reopened store is checked through Get and Has instead of its shape.
func testListIndices(t *testing.T, open Opener) {
	ctx := context.Background()
	s := New(open())
	require.NoError(t, s.Set(ctx, "arr", tree.List(tree.String("a"), tree.String("b"))))
	require.NoError(t, s.Save(ctx))

	s = New(open())
	mustSet(t, s, "arr.0", "x")
	require.NoError(t, s.Forget(ctx, "arr.1"))
	require.NoError(t, s.Save(ctx))

	fresh := New(open())
	got, err := fresh.Get(ctx, "arr.0")
	require.NoError(t, err)
	assert.Equal(t, "x", got.String())
	has, err := fresh.Has(ctx, "arr.1")
	require.NoError(t, err)
	assert.False(t, has)
}

func testNumericKeys(t *testing.T, open Opener) {
	ctx := context.Background()
	s := New(open())
	mustSet(t, s, "1234", "foo")
	mustSet(t, s, "9876", "bar")
	require.NoError(t, s.Load(ctx, true))
	assertStoreEquals(t, open, s, map[string]any{"1234": "foo", "9876": "bar"})

	got, err := New(open()).GetMany(ctx, []string{"1234", "9876"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1234": "foo", "9876": "bar"}, got.Map())
}

func testIdempotentSave(t *testing.T, open Opener) {
	ctx := context.Background()
	inner := open()
	writes := 0
	counting := BackendFunc{
		ReadFunc: inner.Read,
		WriteFunc: func(ctx context.Context, data *tree.Tree) error {
			writes++
			return inner.Write(ctx, data)
		},
	}

	s := New(counting)
	mustSet(t, s, "foo", "bar")
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 1, writes)
	assert.False(t, s.Dirty())
}

func testEndToEnd(t *testing.T, open Opener) {
	ctx := context.Background()

	first := New(open())
	mustSet(t, first, "one", "one_old")
	mustSet(t, first, "two.one", "one_old")
	mustSet(t, first, "two.two", "two_old")
	require.NoError(t, first.Save(ctx))

	second := New(open())
	mustSet(t, second, "one", "one_new")
	mustSet(t, second, "two.two", "two_new")
	require.NoError(t, second.Save(ctx))

	got, err := New(open()).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"one": "one_new",
		"two": map[string]any{"one": "one_old", "two": "two_new"},
	}, got.Map())
}
