package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, string, *IndexStore) {
	ctx := context.Background()
	dir := t.TempDir()
	return ctx, dir, New(dir)
}

func TestGetUnknownKey(t *testing.T) {
	ctx, _, store := setup(t)

	rs, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, rs.Ranges)
	assert.Equal(t, uint64(0), rs.Size())
}

func TestSetAndGet(t *testing.T) {
	ctx, dir, store := setup(t)

	want := types.NewRangeSet(types.Range{From: 0, To: 10}, types.Range{From: 20, To: 30})
	require.NoError(t, store.Set(ctx, "k1", want))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, want.Ranges, got.Ranges)

	// sidecar sits next to where the data file would be.
	b, err := os.ReadFile(filepath.Join(dir, "k1.ranges.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ranges":[{"from":0,"to":10},{"from":20,"to":30}]}`, string(b))
}

func TestSetOverwrites(t *testing.T) {
	ctx, _, store := setup(t)

	require.NoError(t, store.Set(ctx, "k1", types.NewRangeSet(types.Range{From: 0, To: 10})))
	require.NoError(t, store.Set(ctx, "k1", types.NewRangeSet(types.Range{From: 5, To: 6})))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []types.Range{{From: 5, To: 6}}, got.Ranges)
}

func TestSetLeavesNoTempFiles(t *testing.T) {
	ctx, dir, store := setup(t)

	require.NoError(t, store.Set(ctx, "k1", types.NewRangeSet(types.Range{From: 0, To: 1})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k1.ranges.json", entries[0].Name())
}

func TestGetCorrupt(t *testing.T) {
	ctx, dir, store := setup(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.ranges.json"), []byte(`{"ranges":[{`), 0o600))

	_, err := store.Get(ctx, "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrIndexCorrupt)
}

func TestGetInvalidRangeIsCorrupt(t *testing.T) {
	ctx, dir, store := setup(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.ranges.json"), []byte(`{"ranges":[{"from":9,"to":2}]}`), 0o600))

	_, err := store.Get(ctx, "bad")
	assert.ErrorIs(t, err, api.ErrIndexCorrupt)
}

func TestGetNormalizesOnRead(t *testing.T) {
	ctx, dir, store := setup(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.ranges.json"), []byte(`{"ranges":[{"from":10,"to":20},{"from":0,"to":10}]}`), 0o600))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []types.Range{{From: 0, To: 20}}, got.Ranges)
}

func TestDelete(t *testing.T) {
	ctx, _, store := setup(t)

	require.NoError(t, store.Set(ctx, "k1", types.NewRangeSet(types.Range{From: 0, To: 10})))
	require.NoError(t, store.Delete(ctx, "k1"))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, got.Ranges)

	// deleting again is fine.
	require.NoError(t, store.Delete(ctx, "k1"))
}

func TestInvalidKey(t *testing.T) {
	ctx, _, store := setup(t)

	_, err := store.Get(ctx, "../escape")
	assert.ErrorIs(t, err, api.ErrInvalidKey)
	assert.ErrorIs(t, store.Set(ctx, "", types.RangeSet{}), api.ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(ctx, "a/b"), api.ErrInvalidKey)
}
