package memory

import (
	"context"
	"testing"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put("obj", []byte("0123456789"))

	b, err := s.Fetch(ctx, "obj", types.Range{From: 2, To: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte("234"), b)

	n, err := s.Size(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)

	assert.Equal(t, []Fetch{{Key: "obj", Range: types.Range{From: 2, To: 5}}}, s.Fetches())
}

func TestFetchErrors(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put("obj", []byte("0123456789"))

	_, err := s.Fetch(ctx, "nope", types.Range{From: 0, To: 1})
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = s.Size(ctx, "nope")
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = s.Fetch(ctx, "obj", types.Range{From: 5, To: 11})
	assert.ErrorIs(t, err, api.ErrInvalidRange)
}
