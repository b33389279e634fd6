package api

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when a key can't be used as a file name.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidRange is returned when a range has From > To, or when the data
	// given for a range is not exactly as long as the range.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNotFound matches any *NotFound.
	ErrNotFound = &NotFound{}

	// ErrIndexCorrupt matches any *IndexCorrupt.
	ErrIndexCorrupt = &IndexCorrupt{}

	// ErrInUse is returned when trying to delete a key which is currently
	// leased to a reader.
	ErrInUse = errors.New("key in use")
)

// NotFound is returned when a remote object doesn't exist.
type NotFound struct {
	Key string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Key)
}

func (e *NotFound) Is(err error) bool {
	_, ok := err.(*NotFound)
	return ok
}

// IndexCorrupt is returned by RangeIndexStore implementations when the stored
// ranges for a key exist but can't be decoded. The cache can't trust anything
// about the key in this state; callers should delete it and try again.
type IndexCorrupt struct {
	Key string
	Err error
}

func (e *IndexCorrupt) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("index corrupt: %s", e.Key)
	}
	return fmt.Sprintf("index corrupt: %s: %v", e.Key, e.Err)
}

func (e *IndexCorrupt) Unwrap() error {
	return e.Err
}

func (e *IndexCorrupt) Is(err error) bool {
	_, ok := err.(*IndexCorrupt)
	return ok
}
