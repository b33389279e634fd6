package rangecache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/impl/fetcher/memory"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func object(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestLoadMiss(t *testing.T) {
	ctx, _, c, _ := setup(t, 1000)
	src := memory.New()
	obj := object(100)
	src.Put("obj", obj)
	l := NewLoader(c, src)

	lease, err := l.Load(ctx, "obj", r(10, 30))
	require.NoError(t, err)
	defer lease.Close()

	b, err := lease.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, obj[10:30], b)
	assert.Equal(t, []memory.Fetch{{Key: "obj", Range: r(10, 30)}}, src.Fetches())

	// second load is a hit.
	lease2, err := l.Load(ctx, "obj", r(15, 25))
	require.NoError(t, err)
	defer lease2.Close()
	assert.Len(t, src.Fetches(), 1)
}

func TestLoadFetchesOnlyGaps(t *testing.T) {
	ctx, _, c, _ := setup(t, 1000)
	src := memory.New()
	obj := object(100)
	src.Put("obj", obj)
	l := NewLoader(c, src, WithParallelism(1))

	require.NoError(t, c.Set(ctx, "obj", r(0, 10), obj[0:10]))
	require.NoError(t, c.Set(ctx, "obj", r(20, 30), obj[20:30]))

	lease, err := l.Load(ctx, "obj", r(5, 40))
	require.NoError(t, err)
	defer lease.Close()

	assert.Equal(t, []memory.Fetch{
		{Key: "obj", Range: r(10, 20)},
		{Key: "obj", Range: r(30, 40)},
	}, src.Fetches())

	b, err := lease.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, obj[5:40], b)

	rs, err := c.Ranges(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, []types.Range{r(0, 40)}, rs.Ranges)
}

func TestLoadNotFound(t *testing.T) {
	ctx, _, c, _ := setup(t, 1000)
	l := NewLoader(c, memory.New())

	_, err := l.Load(ctx, "nope", r(0, 10))
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestLoadEmptyRange(t *testing.T) {
	ctx, _, c, _ := setup(t, 1000)
	l := NewLoader(c, memory.New())

	_, err := l.Load(ctx, "obj", r(5, 5))
	require.ErrorIs(t, err, api.ErrInvalidRange)
}

func TestLoadHealsCorruptIndex(t *testing.T) {
	ctx, _, c, dir := setup(t, 1000)
	src := memory.New()
	obj := object(50)
	src.Put("obj", obj)
	l := NewLoader(c, src)

	require.NoError(t, c.Set(ctx, "obj", r(0, 10), obj[0:10]))
	err := os.WriteFile(filepath.Join(dir, "obj"+api.IndexSuffix), []byte("garbage"), 0o600)
	require.NoError(t, err)

	lease, err := l.Load(ctx, "obj", r(0, 20))
	require.NoError(t, err)
	defer lease.Close()

	// everything was fetched again, since nothing could be trusted.
	assert.Equal(t, []memory.Fetch{{Key: "obj", Range: r(0, 20)}}, src.Fetches())
	assert.Equal(t, uint64(20), c.Size())
}

func TestLoadKeepsLeasedKeys(t *testing.T) {
	ctx, _, c, _ := setup(t, 10)
	src := memory.New()
	src.Put("a", object(10))
	src.Put("b", object(10))
	l := NewLoader(c, src)

	la, err := l.Load(ctx, "a", r(0, 10))
	require.NoError(t, err)

	lb, err := l.Load(ctx, "b", r(0, 10))
	require.NoError(t, err)

	// over size, but both are leased.
	assert.Equal(t, uint64(20), c.Size())

	require.NoError(t, la.Close())
	require.NoError(t, lb.Close())
	require.NoError(t, c.EnsureCleared(ctx))
	assert.Equal(t, uint64(10), c.Size())
	assert.Equal(t, []string{"b"}, keys(c))
}

func TestLoadConcurrent(t *testing.T) {
	ctx, _, c, _ := setup(t, 1000)
	src := memory.New()
	obj := object(100)
	src.Put("obj", obj)
	l := NewLoader(c, src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := l.Load(ctx, "obj", r(0, 100))
			if !assert.NoError(t, err) {
				return
			}
			defer lease.Close()

			b, err := lease.ReadAll()
			assert.NoError(t, err)
			assert.Equal(t, obj, b)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(100), c.Size())
	assert.Equal(t, 1, c.Len())
}
