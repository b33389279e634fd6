package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotFound(t *testing.T) {
	err := &NotFound{Key: "test-key"}

	require.Equal(t, "not found: test-key", err.Error())

	require.True(t, errors.Is(err, &NotFound{}))
	require.False(t, errors.Is(err, errors.New("other error")))
}

func TestIndexCorrupt(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := fmt.Errorf("Get: %w", &IndexCorrupt{Key: "k", Err: cause})

	require.Equal(t, "Get: index corrupt: k: unexpected EOF", err.Error())
	require.ErrorIs(t, err, ErrIndexCorrupt)
	require.ErrorIs(t, err, cause)
	require.False(t, errors.Is(err, &NotFound{}))
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"a", "blob-123", "part.parquet", "x.ranges"} {
		require.NoError(t, ValidateKey(key), key)
	}

	for _, key := range []string{"", ".hidden", "a/b", `a\b`, "..", "k.ranges.json", "a\x00b"} {
		require.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestIsIndexName(t *testing.T) {
	require.True(t, IsIndexName("abc.ranges.json"))
	require.False(t, IsIndexName("abc"))
	require.False(t, IsIndexName("abc.ranges"))
}
