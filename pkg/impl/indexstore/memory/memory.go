// Package memory provides an in-memory RangeIndexStore, for tests and for
// embedding the cache where the index doesn't need to survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
)

type IndexStore struct {
	mu       sync.RWMutex
	contents map[string]types.RangeSet
}

var _ api.RangeIndexStore = (*IndexStore)(nil)

func New() *IndexStore {
	return &IndexStore{
		contents: make(map[string]types.RangeSet),
	}
}

func (m *IndexStore) Get(ctx context.Context, key string) (types.RangeSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.contents[key]
	if !ok {
		return types.RangeSet{}, nil
	}

	return clone(rs), nil
}

func (m *IndexStore) Set(ctx context.Context, key string, ranges types.RangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.contents[key] = clone(ranges.Normalize())
	return nil
}

func (m *IndexStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.contents, key)
	return nil
}

// Keys returns the keys which currently have ranges stored, in no particular
// order.
func (m *IndexStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.contents))
	for k := range m.contents {
		keys = append(keys, k)
	}
	return keys
}

func clone(rs types.RangeSet) types.RangeSet {
	out := make([]types.Range, len(rs.Ranges))
	copy(out, rs.Ranges)
	return types.RangeSet{Ranges: out}
}
