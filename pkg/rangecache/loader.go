package rangecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultParallelism = 4

	// get, fetch, get. plus one more round after deleting a corrupt key.
	maxAttempts = 4
)

// ErrNotKept is returned by Loader.Load when a range was fetched, but evicted
// by other callers before it could be leased, every time.
var ErrNotKept = errors.New("range was evicted before it could be leased")

// Loader reads through the cache: ranges which aren't cached are fetched from
// the source, written to the cache, and then leased like any other hit.
type Loader struct {
	cache       *Cache
	src         api.Fetcher
	log         logrus.FieldLogger
	parallelism int

	group singleflight.Group
}

type LoaderOption func(*Loader)

func WithLoaderLogger(log logrus.FieldLogger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// WithParallelism sets how many gaps of a single range may be fetched at once.
func WithParallelism(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.parallelism = n
		}
	}
}

func NewLoader(c *Cache, src api.Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		cache:       c,
		src:         src,
		log:         c.log,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns a lease on r of key, fetching whichever parts of it aren't
// cached yet. The cache is cleared down to its size afterwards, but the
// returned lease keeps r itself from being evicted.
//
// If the index for key is corrupt, the key is deleted and loaded again from
// scratch, once.
func (l *Loader) Load(ctx context.Context, key string, r types.Range) (*Lease, error) {
	if !r.Valid() || r.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", api.ErrInvalidRange, r)
	}

	healed := false
	for i := 0; i < maxAttempts; i++ {
		lease, err := l.cache.Get(ctx, key, r)
		if err != nil {
			if !errors.Is(err, api.ErrIndexCorrupt) || healed {
				return nil, err
			}

			l.log.WithError(err).WithField("key", key).Warn("deleting key with corrupt index")
			if err := l.cache.Delete(ctx, key); err != nil {
				return nil, fmt.Errorf("Delete: %w", err)
			}

			healed = true
			continue
		}

		if lease != nil {
			if err := l.cache.EnsureCleared(ctx); err != nil {
				lease.Close()
				return nil, fmt.Errorf("EnsureCleared: %w", err)
			}
			return lease, nil
		}

		if err := l.fill(ctx, key, r); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s %s", ErrNotKept, key, r)
}

// fill fetches the parts of r which are missing from the cache and writes them
// without evicting anything. Concurrent calls for the same key and range share
// one fetch, which runs under the first caller's context.
func (l *Loader) fill(ctx context.Context, key string, r types.Range) error {
	_, err, _ := l.group.Do(key+" "+r.String(), func() (interface{}, error) {
		rs, err := l.cache.Ranges(ctx, key)
		if err != nil {
			return nil, err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.parallelism)

		for _, gap := range rs.Missing(r) {
			g.Go(func() error {
				return l.fetch(gctx, key, gap)
			})
		}

		return nil, g.Wait()
	})

	return err
}

func (l *Loader) fetch(ctx context.Context, key string, gap types.Range) error {
	start := l.cache.clock.Now()
	data, err := l.src.Fetch(ctx, key, gap)
	l.cache.metrics.ObserveFetch(len(data), l.cache.clock.Since(start), err)
	if err != nil {
		return fmt.Errorf("Fetch: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"key":   key,
		"range": gap.String(),
	}).Debug("fetched")

	err = l.cache.SetNoClear(ctx, key, gap, data)
	if err != nil {
		return fmt.Errorf("SetNoClear: %w", err)
	}

	return nil
}
