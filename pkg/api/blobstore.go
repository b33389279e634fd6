package api

import (
	"context"
)

// BlobStore stores the cached bytes of each key in a single file, at the same
// offsets as in the remote object. Regions which were never written are holes.
type BlobStore interface {

	// Exists returns true if anything has been written for the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Path returns the location of the file for the key. It's deterministic,
	// and does not imply that the file exists.
	Path(key string) string

	// Write writes data at the given offset, creating the file if needed.
	// Nothing before the offset needs to have been written.
	Write(ctx context.Context, key string, data []byte, offset uint64) error

	// Delete removes the file for the key. If it doesn't exist, the call is a
	// no-op.
	Delete(ctx context.Context, key string) error
}
