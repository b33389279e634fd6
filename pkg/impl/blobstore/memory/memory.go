// Package memory provides an in-memory BlobStore. Path returns the key itself,
// so it's only useful where nothing reads the files directly, like tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/adammck/rangecache/pkg/api"
)

type BlobStore struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

var _ api.BlobStore = (*BlobStore)(nil)

func New() *BlobStore {
	return &BlobStore{
		blobs: make(map[string][]byte),
	}
}

func (m *BlobStore) Path(key string) string {
	return key
}

func (m *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[key]
	return ok, nil
}

func (m *BlobStore) Write(ctx context.Context, key string, data []byte, offset uint64) error {
	if offset > math.MaxInt-uint64(len(data)) {
		return fmt.Errorf("%w: offset %d overflows", api.ErrInvalidRange, offset)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.blobs[key]
	end := int(offset) + len(data)
	if end > len(b) {
		grown := make([]byte, end)
		copy(grown, b)
		b = grown
	}

	copy(b[offset:], data)
	m.blobs[key] = b
	return nil
}

func (m *BlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

// Bytes returns a copy of everything written for the key, with unwritten
// regions as zeroes.
func (m *BlobStore) Bytes(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, false
	}

	out := make([]byte, len(b))
	copy(out, b)
	return out, true
}

// Keys returns the keys with anything written, in no particular order.
func (m *BlobStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys
}
