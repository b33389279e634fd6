package memory

import (
	"context"
	"testing"

	"github.com/adammck/rangecache/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexStore(t *testing.T) {
	ctx := context.Background()
	store := New()

	rs, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, rs.Ranges)

	in := types.RangeSet{Ranges: []types.Range{{From: 10, To: 20}, {From: 0, To: 10}}}
	require.NoError(t, store.Set(ctx, "k", in))

	rs, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []types.Range{{From: 0, To: 20}}, rs.Ranges)
	assert.Equal(t, []string{"k"}, store.Keys())

	// mutating the returned set doesn't touch the stored one.
	rs.Ranges[0].To = 99
	rs2, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), rs2.Ranges[0].To)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))
	assert.Empty(t, store.Keys())
}
