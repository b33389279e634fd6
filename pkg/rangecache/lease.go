package rangecache

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/adammck/rangecache/pkg/types"
)

// Lease is a hit returned by Cache.Get. While a lease is open, its key will not
// be evicted or deleted, so the file at Path stays valid. Leases must be
// closed.
type Lease struct {
	c    *Cache
	key  string
	path string
	rng  types.Range
	once sync.Once
}

func (l *Lease) Key() string {
	return l.key
}

// Path returns the location of the sparse data file. The requested range is at
// its real offset within the file.
func (l *Lease) Path() string {
	return l.path
}

// Range returns the range which was requested, which is known to be cached.
func (l *Lease) Range() types.Range {
	return l.rng
}

// Open opens the data file for reading.
func (l *Lease) Open() (*os.File, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	return f, nil
}

// ReadAll reads the leased range from the data file.
func (l *Lease) ReadAll() ([]byte, error) {
	f, err := l.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b := make([]byte, l.rng.Size())
	_, err = io.ReadFull(io.NewSectionReader(f, int64(l.rng.From), int64(l.rng.Size())), b)
	if err != nil {
		return nil, fmt.Errorf("ReadFull: %w", err)
	}

	return b, nil
}

// Close releases the lease. Calling it more than once is fine.
func (l *Lease) Close() error {
	l.once.Do(func() {
		l.c.release(l.key)
	})
	return nil
}
