package api

import (
	"context"

	"github.com/adammck/rangecache/pkg/types"
)

// Fetcher supplies the bytes of a remote object which are missing from the
// cache. The cache itself never fetches anything; callers (like the loader)
// do, and then hand the bytes to the cache.
type Fetcher interface {

	// Fetch returns exactly r.Size() bytes starting at r.From of the object.
	// Returns NotFound if the object doesn't exist.
	Fetch(ctx context.Context, key string, r types.Range) ([]byte, error)
}

// ObjectSizer reports the total size of remote objects, which is needed to
// resolve open-ended and suffix range requests.
type ObjectSizer interface {

	// Size returns the size in bytes of the object, or NotFound.
	Size(ctx context.Context, key string) (uint64, error)
}

// Source is a remote object store which can do both.
type Source interface {
	Fetcher
	ObjectSizer
}
