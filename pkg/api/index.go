package api

import (
	"context"

	"github.com/adammck/rangecache/pkg/types"
)

// RangeIndexStore persists the set of cached byte ranges for each key.
type RangeIndexStore interface {

	// Get returns the ranges stored for the given key. If nothing is stored,
	// an empty set and no error is returned. If something is stored but can't
	// be decoded, an error matching ErrIndexCorrupt is returned.
	Get(ctx context.Context, key string) (types.RangeSet, error)

	// Set stores the ranges for the given key, replacing whatever was there.
	Set(ctx context.Context, key string, ranges types.RangeSet) error

	// Delete removes the ranges for the given key. If the key is unknown, the
	// call is a no-op.
	Delete(ctx context.Context, key string) error
}
