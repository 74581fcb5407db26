package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settings-lite/internal/tree"
)

// fakeBackend records calls and can be told to fail.
type fakeBackend struct {
	data     *tree.Tree
	reads    int
	writes   int
	readErr  error
	writeErr error
	prune    bool
}

func newFakeBackend(data map[string]any) *fakeBackend {
	return &fakeBackend{data: tree.MustFromMap(data)}
}

func (f *fakeBackend) Read(ctx context.Context) (*tree.Tree, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.data.Clone(), nil
}

func (f *fakeBackend) Write(ctx context.Context, data *tree.Tree) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.data = data.Clone()
	return nil
}

func (f *fakeBackend) PruneEmptyAncestors() bool { return f.prune }

func TestStore_LoadsLazilyOnce(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"foo": "bar"})
	s := New(b)
	assert.Equal(t, 0, b.reads)
	assert.False(t, s.Loaded())

	_, err := s.Get(ctx, "foo")
	require.NoError(t, err)
	_, err = s.Has(ctx, "foo")
	require.NoError(t, err)
	_, err = s.All(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, b.reads)
	assert.True(t, s.Loaded())
}

func TestStore_ForceLoadKeepsPendingValues(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"persisted": "yes", "foo": "old"})
	s := New(b)
	require.NoError(t, s.Set(ctx, "foo", tree.String("new")))

	require.NoError(t, s.Load(ctx, true))
	assert.Equal(t, 2, b.reads)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"persisted": "yes", "foo": "new"}, all.Map())
	assert.Equal(t, map[string]any{"persisted": "yes", "foo": "old"}, s.Persisted().Map())
	assert.Equal(t, map[string]any{"foo": "new"}, s.Updated().Map())
}

func TestStore_ListElementChangesSurviveForceLoad(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"arr": []any{"a", "b", "c"}})
	s := New(b)
	require.NoError(t, s.Set(ctx, "arr.0", tree.String("x")))
	require.NoError(t, s.Forget(ctx, "arr.2"))

	require.NoError(t, s.Load(ctx, true))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"arr": []any{"x", "b"}}, all.Map())
	assert.Equal(t, map[string]any{"arr": []any{"x", "b"}}, s.Updated().Map())
}

func TestStore_GetDefaultPriority(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(map[string]any{"set": "value"}),
		WithDefaults(tree.MustFromMap(map[string]any{"table": "from-table", "set": "unused"})))

	v, err := s.Get(ctx, "set")
	require.NoError(t, err)
	assert.Equal(t, "value", v.String())

	v, err = s.Get(ctx, "table")
	require.NoError(t, err)
	assert.Equal(t, "from-table", v.String())

	v, err = s.GetDefault(ctx, "table", tree.String("explicit"))
	require.NoError(t, err)
	assert.Equal(t, "explicit", v.String())

	v, err = s.Get(ctx, "nowhere")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestStore_GetManyMergesDefaults(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(map[string]any{"foo": "bar"}),
		WithDefaults(tree.MustFromMap(map[string]any{"foo": "d1", "bar": "d2", "baz": "d3"})))

	got, err := s.GetMany(ctx, []string{"foo", "bar"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "bar", "bar": "d2"}, got.Map())

	got, err = s.GetMany(ctx, []string{"foo", "bar", "baz"}, map[string]tree.Value{
		"bar": tree.String("caller"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "bar", "bar": "caller", "baz": "d3"}, got.Map())
}

func TestStore_SetMarksDirty(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(nil))
	assert.False(t, s.Dirty())
	require.NoError(t, s.Set(ctx, "a.b", tree.Int(1)))
	assert.True(t, s.Dirty())
}

func TestStore_SetMany(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(nil))

	values := tree.New()
	values.Put("a.b", tree.String("x"))
	values.Put("c", tree.Bool(true))
	require.NoError(t, s.SetMany(ctx, values))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "x"}, "c": true}, all.Map())
}

func TestStore_SetNonMappingSegmentIsNotDirty(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(map[string]any{"a": "scalar"}))
	err := s.Set(ctx, "a.b", tree.Int(1))
	assert.ErrorIs(t, err, ErrNonMappingSegment)
	assert.False(t, s.Dirty())
}

// Forget marks the store dirty even when the key was never present. This
// mirrors Set and keeps Save simple; a stricter no-op would skip the write.
func TestStore_ForgetAlwaysDirties(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"foo": "bar"})
	s := New(b)

	require.NoError(t, s.Forget(ctx, "missing"))
	assert.True(t, s.Dirty())
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 1, b.writes)
}

func TestStore_ForgetPrunesOnlyForPruners(t *testing.T) {
	ctx := context.Background()
	for _, prune := range []bool{false, true} {
		b := newFakeBackend(map[string]any{"a": map[string]any{"b": "1", "c": "2"}})
		b.prune = prune
		s := New(b)

		require.NoError(t, s.Forget(ctx, "a.b"))
		require.NoError(t, s.Forget(ctx, "a.c"))

		has, err := s.Has(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, !prune, has, "prune=%v", prune)
	}
}

func TestStore_ForgetAll(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"foo": "bar"})
	s := New(b)
	require.NoError(t, s.ForgetAll(ctx))
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 0, b.data.Len())
}

func TestStore_AllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(map[string]any{"foo": "bar"}))
	all, err := s.All(ctx)
	require.NoError(t, err)
	require.NoError(t, tree.Set(all, "foo", tree.String("mutated")))

	v, err := s.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", v.String())
	assert.False(t, s.Dirty())
}

func TestStore_SaveWithoutChangesDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"foo": "bar"})
	s := New(b)
	_, err := s.Get(ctx, "foo")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, b.writes)
}

func TestStore_ReadErrorLeavesStoreUnloaded(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(map[string]any{"foo": "bar"})
	b.readErr = errors.New("connection refused")
	s := New(b)

	_, err := s.Get(ctx, "foo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRead), "error = %v", err)
	assert.False(t, s.Loaded())

	b.readErr = nil
	v, err := s.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", v.String())
	assert.Equal(t, 2, b.reads)
}

func TestStore_WriteErrorKeepsDirty(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(nil)
	b.writeErr = errors.New("disk full")
	s := New(b)
	require.NoError(t, s.Set(ctx, "foo", tree.String("bar")))

	err := s.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
	assert.True(t, s.Dirty())

	b.writeErr = nil
	require.NoError(t, s.Save(ctx))
	assert.False(t, s.Dirty())
	assert.Equal(t, 2, b.writes)
	assert.Equal(t, map[string]any{"foo": "bar"}, b.data.Map())
}

func TestStore_SaveResetsUpdated(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(nil))
	require.NoError(t, s.Set(ctx, "foo", tree.String("bar")))
	assert.Equal(t, 1, s.Updated().Len())

	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 0, s.Updated().Len())
	assert.Equal(t, map[string]any{"foo": "bar"}, s.Persisted().Map())
}

func TestReadErrorWrapsOnce(t *testing.T) {
	err := ReadError(ReadError(errors.New("boom")))
	assert.ErrorIs(t, err, ErrRead)
	assert.Equal(t, "settings: read failed: boom", err.Error())
	assert.NoError(t, ReadError(nil))
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(nil)
	b.prune = true
	inst := Instrument("instrument-test", b)

	s := New(inst)
	require.NoError(t, s.Set(ctx, "a", tree.Int(1)))
	require.NoError(t, s.Save(ctx))

	assert.Equal(t, uint64(1), metrics.GetOrCreateCounter(`settings_backend_reads_total{backend="instrument-test"}`).Get())
	assert.Equal(t, uint64(1), metrics.GetOrCreateCounter(`settings_backend_writes_total{backend="instrument-test"}`).Get())
	assert.True(t, prunes(inst))
}
