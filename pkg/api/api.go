// This package contains only interfaces and errors to be used by other
// packages. The implementations of these should be in pkg/impl/whatever. To
// avoid circular deps, this package should import nothing from pkg except
// pkg/types.
package api

import (
	"fmt"
	"strings"
)

// IndexSuffix is appended to a key to name its range index sidecar. Anything
// scanning a cache directory can tell index artifacts from data files by this
// suffix alone.
const IndexSuffix = ".ranges.json"

// ValidateKey returns ErrInvalidKey (wrapped) if the key can't be used to name
// files in a flat cache directory.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(key, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidKey, key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	case strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidKey, key)
	case strings.HasSuffix(key, IndexSuffix):
		return fmt.Errorf("%w: %q ends with %s", ErrInvalidKey, key, IndexSuffix)
	}

	return nil
}

// IsIndexName returns true if the given directory entry name is a range index
// sidecar rather than a data file.
func IsIndexName(name string) bool {
	return strings.HasSuffix(name, IndexSuffix)
}
