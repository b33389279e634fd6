// Package rangecache caches byte ranges of large remote objects on local disk.
// Each key is stored as one sparse file plus an index of which ranges of it
// have been written. Disk usage is bounded by evicting whole keys, least
// recently used first.
package rangecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/lru"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type Cache struct {
	maxSize uint64
	idx     api.RangeIndexStore
	blobs   api.BlobStore
	clock   clockwork.Clock
	log     logrus.FieldLogger
	metrics Metrics

	keys *keyLocks

	// everything below is guarded by mu. when both are needed, the key lock
	// is always taken first.
	mu        sync.Mutex
	recency   *lru.Recency
	sizes     map[string]uint64
	leases    map[string]int
	totalSize uint64
}

// Entry describes one cached key, for introspection.
type Entry struct {
	Key        string
	Size       uint64
	LastAccess time.Time
	Leases     int
}

type Option func(*Cache)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) {
		c.log = log
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New returns an empty cache which will hold at most maxSize bytes (counted as
// the sum of cached range sizes, not disk usage) once EnsureCleared returns.
// Call InitFromDir to pick up whatever a previous process left on disk.
func New(maxSize uint64, idx api.RangeIndexStore, blobs api.BlobStore, opts ...Option) *Cache {
	c := &Cache{
		maxSize: maxSize,
		idx:     idx,
		blobs:   blobs,
		clock:   clockwork.NewRealClock(),
		log:     logrus.StandardLogger(),
		metrics: nopMetrics{},
		keys:    newKeyLocks(),
		recency: lru.New(),
		sizes:   make(map[string]uint64),
		leases:  make(map[string]int),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// InitFromDir resets the in-memory state and rebuilds it from the data files
// in dir, which should be the directory the blob store writes to. Every key
// found is given the same access time, so until they're touched again, they
// are evicted in directory order.
//
// Index sidecars with no data file are removed, as are keys whose index can't
// be read. Nothing would ever reclaim either of them otherwise.
//
// It must be called before the cache is shared between goroutines.
func (c *Cache) InitFromDir(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("MkdirAll: %w", err)
	}

	return c.load(ctx, dir, true)
}

// ScanDir is InitFromDir without changing anything on disk: orphaned sidecars
// and keys with corrupt indexes are logged and skipped. A missing dir is an
// empty cache.
func (c *Cache) ScanDir(ctx context.Context, dir string) error {
	return c.load(ctx, dir, false)
}

func (c *Cache) load(ctx context.Context, dir string, cleanup bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !(os.IsNotExist(err) && !cleanup) {
		return fmt.Errorf("ReadDir: %w", err)
	}

	c.mu.Lock()
	c.recency.Purge()
	c.sizes = make(map[string]uint64)
	c.totalSize = 0
	c.mu.Unlock()

	now := c.clock.Now()
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}

		if api.IsIndexName(name) {
			if !cleanup {
				continue
			}

			err := c.removeOrphanIndex(ctx, strings.TrimSuffix(name, api.IndexSuffix))
			if err != nil {
				return err
			}
			continue
		}

		if api.ValidateKey(name) != nil {
			continue
		}

		rs, err := c.idx.Get(ctx, name)
		if err != nil {
			if !errors.Is(err, api.ErrIndexCorrupt) {
				return fmt.Errorf("idx.Get: %w", err)
			}

			if !cleanup {
				c.log.WithError(err).WithField("key", name).Warn("skipping key with corrupt index")
				continue
			}

			c.log.WithError(err).WithField("key", name).Warn("removing key with corrupt index")
			unlock := c.keys.Lock(name)
			err = c.remove(ctx, name)
			unlock()
			if err != nil {
				return err
			}
			continue
		}

		c.mu.Lock()
		c.recency.Touch(name, now)
		c.setSize(name, rs.Size())
		c.mu.Unlock()
	}

	c.mu.Lock()
	size, n := c.totalSize, c.recency.Len()
	c.mu.Unlock()

	c.metrics.ObserveSize(size, n)
	c.log.WithFields(logrus.Fields{
		"dir":   dir,
		"keys":  n,
		"bytes": size,
	}).Info("cache initialized")

	return nil
}

func (c *Cache) removeOrphanIndex(ctx context.Context, key string) error {
	if api.ValidateKey(key) != nil {
		return nil
	}

	ok, err := c.blobs.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("blobs.Exists: %w", err)
	}
	if ok {
		return nil
	}

	c.log.WithField("key", key).Warn("removing orphaned index")
	if err := c.idx.Delete(ctx, key); err != nil {
		return fmt.Errorf("idx.Delete: %w", err)
	}

	return nil
}

// Get returns a lease on the data file of key if every byte of r is cached, or
// nil if not. The key counts as accessed whenever it exists, even if r isn't
// cached, since the caller is presumably about to fill it in.
func (c *Cache) Get(ctx context.Context, key string, r types.Range) (*Lease, error) {
	if err := api.ValidateKey(key); err != nil {
		return nil, err
	}
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %s", api.ErrInvalidRange, r)
	}

	unlock := c.keys.Lock(key)
	defer unlock()

	ok, err := c.blobs.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("blobs.Exists: %w", err)
	}
	if !ok {
		c.metrics.ObserveGet(false)
		return nil, nil
	}

	c.touch(key)

	rs, err := c.idx.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idx.Get: %w", err)
	}

	if !rs.ContainsRange(r) {
		c.metrics.ObserveGet(false)
		return nil, nil
	}

	c.mu.Lock()
	c.leases[key]++
	c.mu.Unlock()

	c.metrics.ObserveGet(true)
	return &Lease{
		c:    c,
		key:  key,
		path: c.blobs.Path(key),
		rng:  r,
	}, nil
}

// Ranges returns the ranges of key which are currently cached. It doesn't
// count as an access.
func (c *Cache) Ranges(ctx context.Context, key string) (types.RangeSet, error) {
	if err := api.ValidateKey(key); err != nil {
		return types.RangeSet{}, err
	}

	unlock := c.keys.Lock(key)
	defer unlock()

	rs, err := c.idx.Get(ctx, key)
	if err != nil {
		return types.RangeSet{}, fmt.Errorf("idx.Get: %w", err)
	}

	return rs, nil
}

// Set writes data, which must be exactly r.Size() bytes, at r.From in the data
// file for key, and then evicts until the cache is within its size.
func (c *Cache) Set(ctx context.Context, key string, r types.Range, data []byte) error {
	if err := c.SetNoClear(ctx, key, r, data); err != nil {
		return err
	}

	return c.EnsureCleared(ctx)
}

// SetNoClear is like Set, but doesn't evict anything. The cache may be over its
// size afterwards.
func (c *Cache) SetNoClear(ctx context.Context, key string, r types.Range, data []byte) error {
	if err := api.ValidateKey(key); err != nil {
		return err
	}
	if !r.Valid() {
		return fmt.Errorf("%w: %s", api.ErrInvalidRange, r)
	}
	if uint64(len(data)) != r.Size() {
		return fmt.Errorf("%w: range %s is %d bytes, but got %d", api.ErrInvalidRange, r, r.Size(), len(data))
	}

	unlock := c.keys.Lock(key)
	defer unlock()

	c.touch(key)

	cur, err := c.idx.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("idx.Get: %w", err)
	}

	err = c.blobs.Write(ctx, key, data, r.From)
	if err != nil {
		return fmt.Errorf("blobs.Write: %w", err)
	}

	next := cur.AddRange(r)
	err = c.idx.Set(ctx, key, next)
	if err != nil {
		return fmt.Errorf("idx.Set: %w", err)
	}

	c.mu.Lock()
	c.setSize(key, next.Size())
	size, n := c.totalSize, c.recency.Len()
	c.mu.Unlock()

	c.metrics.ObserveSet(len(data))
	c.metrics.ObserveSize(size, n)

	return nil
}

// EnsureCleared evicts whole keys, least recently used first, until the cache
// is within its size. Leased keys are skipped; if only leased keys are left,
// it gives up and the cache stays over size until the next call.
func (c *Cache) EnsureCleared(ctx context.Context) error {
	for {
		vs := c.victims()
		if len(vs) == 0 {
			return nil
		}

		// if a victim was touched or leased in the meantime, evicting it is a
		// no-op and the next round picks again.
		for _, v := range vs {
			if err := c.evict(ctx, v.key, v.at); err != nil {
				return err
			}
		}
	}
}

type victim struct {
	key string
	at  time.Time
}

// victims returns the keys to evict next, if the cache is over size. That is
// the oldest key when it isn't leased. Otherwise the recency list is walked
// once, and enough unleased keys to get within size are returned in order.
func (c *Cache) victims() []victim {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.totalSize <= c.maxSize {
		return nil
	}

	key, at, ok := c.recency.Oldest()
	if !ok {
		return nil
	}
	if c.leases[key] == 0 {
		return []victim{{key: key, at: at}}
	}

	over := c.totalSize - c.maxSize
	var freed uint64
	var out []victim

	for _, key := range c.recency.Keys() {
		if c.leases[key] > 0 {
			continue
		}

		at, _ := c.recency.Get(key)
		out = append(out, victim{key: key, at: at})

		freed += c.sizes[key]
		if freed >= over {
			break
		}
	}

	if len(out) == 0 {
		c.log.WithFields(logrus.Fields{
			"bytes":    c.totalSize,
			"max_size": c.maxSize,
		}).Debug("over size, but every key is leased")
	}

	return out
}

// evict removes key if it's still unleased and hasn't been accessed since at.
func (c *Cache) evict(ctx context.Context, key string, at time.Time) error {
	unlock := c.keys.Lock(key)
	defer unlock()

	c.mu.Lock()
	cur, ok := c.recency.Get(key)
	stale := !ok || !cur.Equal(at) || c.leases[key] > 0
	size := c.sizes[key]
	c.mu.Unlock()

	if stale {
		return nil
	}

	if err := c.remove(ctx, key); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"key":   key,
		"bytes": size,
	}).Debug("evicted")
	c.metrics.ObserveEviction(size)

	return nil
}

// Delete removes key and everything cached for it. Returns ErrInUse if the key
// is leased.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := api.ValidateKey(key); err != nil {
		return err
	}

	unlock := c.keys.Lock(key)
	defer unlock()

	c.mu.Lock()
	leased := c.leases[key] > 0
	c.mu.Unlock()

	if leased {
		return fmt.Errorf("%w: %s", api.ErrInUse, key)
	}

	return c.remove(ctx, key)
}

// remove deletes the data file before the index, so a crash between the two
// leaves an orphaned index, which InitFromDir cleans up. The caller must hold
// the key lock.
func (c *Cache) remove(ctx context.Context, key string) error {
	if err := c.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("blobs.Delete: %w", err)
	}

	if err := c.idx.Delete(ctx, key); err != nil {
		return fmt.Errorf("idx.Delete: %w", err)
	}

	c.mu.Lock()
	c.setSize(key, 0)
	delete(c.sizes, key)
	c.recency.Remove(key)
	size, n := c.totalSize, c.recency.Len()
	c.mu.Unlock()

	c.metrics.ObserveSize(size, n)
	return nil
}

func (c *Cache) touch(key string) {
	now := c.clock.Now()

	c.mu.Lock()
	c.recency.Touch(key, now)
	c.mu.Unlock()
}

// setSize replaces the tracked size of key. The caller must hold mu.
func (c *Cache) setSize(key string, n uint64) {
	old := c.sizes[key]
	if c.totalSize < old {
		panic(fmt.Sprintf("rangecache: total size %d is less than size %d of key %q", c.totalSize, old, key))
	}

	c.totalSize = c.totalSize - old + n
	c.sizes[key] = n
}

func (c *Cache) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.leases[key]
	if n <= 0 {
		panic(fmt.Sprintf("rangecache: released key %q which was not leased", key))
	}

	if n == 1 {
		delete(c.leases, key)
		return
	}

	c.leases[key] = n - 1
}

// Size returns the number of cached bytes, summed over every key.
func (c *Cache) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

func (c *Cache) MaxSize() uint64 {
	return c.maxSize
}

// Len returns the number of keys in the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

// Entries returns every key in the cache, least recently used first.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.recency.Keys()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		at, _ := c.recency.Get(k)
		out = append(out, Entry{
			Key:        k,
			Size:       c.sizes[k],
			LastAccess: at,
			Leases:     c.leases[k],
		})
	}

	return out
}
