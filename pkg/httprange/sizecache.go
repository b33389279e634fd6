package httprange

import (
	"context"
	"fmt"

	"github.com/adammck/rangecache/pkg/api"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SizeCache remembers object sizes, so range requests don't need a round trip
// to the source before they can be translated. Objects are assumed to never
// change size. Missing objects are not remembered.
type SizeCache struct {
	sizer api.ObjectSizer
	sizes *lru.Cache[string, uint64]
}

var _ api.ObjectSizer = (*SizeCache)(nil)

func NewSizeCache(sizer api.ObjectSizer, n int) (*SizeCache, error) {
	sizes, err := lru.New[string, uint64](n)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}

	return &SizeCache{
		sizer: sizer,
		sizes: sizes,
	}, nil
}

func (sc *SizeCache) Size(ctx context.Context, key string) (uint64, error) {
	if n, ok := sc.sizes.Get(key); ok {
		return n, nil
	}

	n, err := sc.sizer.Size(ctx, key)
	if err != nil {
		return 0, err
	}

	sc.sizes.Add(key, n)
	return n, nil
}
