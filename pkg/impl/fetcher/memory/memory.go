// Package memory provides an in-memory Source, for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
)

// Fetch is one call to Source.Fetch, recorded so tests can check what was
// fetched.
type Fetch struct {
	Key   string
	Range types.Range
}

type Source struct {
	mu      sync.Mutex
	objects map[string][]byte
	fetches []Fetch
}

var _ api.Source = (*Source)(nil)

func New() *Source {
	return &Source{
		objects: make(map[string][]byte),
	}
}

// Put stores an object, replacing any existing one with the same key.
func (s *Source) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, len(data))
	copy(b, data)
	s.objects[key] = b
}

func (s *Source) Fetch(ctx context.Context, key string, r types.Range) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches = append(s.fetches, Fetch{Key: key, Range: r})

	b, ok := s.objects[key]
	if !ok {
		return nil, &api.NotFound{Key: key}
	}

	if !r.Valid() || r.To > uint64(len(b)) {
		return nil, fmt.Errorf("%w: %s of %d bytes", api.ErrInvalidRange, r, len(b))
	}

	out := make([]byte, r.Size())
	copy(out, b[r.From:r.To])
	return out, nil
}

func (s *Source) Size(ctx context.Context, key string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.objects[key]
	if !ok {
		return 0, &api.NotFound{Key: key}
	}

	return uint64(len(b)), nil
}

// Fetches returns every call to Fetch so far, in order.
func (s *Source) Fetches() []Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Fetch, len(s.fetches))
	copy(out, s.fetches)
	return out
}
