package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "loader:categories", []entry{{ID: 1, Name: "A"}}, time.Minute))

	var got []entry
	require.NoError(t, mc.Get(ctx, "loader:categories", &got))
	assert.Equal(t, []entry{{ID: 1, Name: "A"}}, got)

	var missing []entry
	assert.ErrorIs(t, mc.Get(ctx, "loader:nothing", &missing), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, err = mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))

	require.NoError(t, mc.Set(ctx, "c", 3, 0))
	assert.Equal(t, 2, mc.Len())

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	ok, _ = mc.Exists(ctx, "a")
	assert.True(t, ok)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"loader:categories", "loader:dailyFunds", "other:x"} {
		require.NoError(t, mc.Set(ctx, k, k, 0))
	}

	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("loader")))
	assert.Equal(t, 1, mc.Len())

	assert.Error(t, mc.DeleteByPattern(ctx, "[bad"))
}

func TestMemoryCacheRawBytes(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	raw := []byte(`{"id":7,"name":"x"}`)
	require.NoError(t, mc.Set(ctx, "k", raw, 0))
	raw[0] = 'X'

	var e entry
	require.NoError(t, mc.Get(ctx, "k", &e))
	assert.Equal(t, entry{ID: 7, Name: "x"}, e)
}

type countingService struct {
	*MemoryCache
	gets int
}

func (c *countingService) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	return c.MemoryCache.Get(ctx, key, dest)
}

func TestLayeredCacheFillsL1(t *testing.T) {
	remote := &countingService{MemoryCache: NewMemoryCache()}
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, remote.Set(ctx, "k", entry{ID: 1}, 0))

	var e entry
	require.NoError(t, lc.Get(ctx, "k", &e))
	require.NoError(t, lc.Get(ctx, "k", &e))
	assert.Equal(t, 1, remote.gets)
	assert.Equal(t, 1, e.ID)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &e), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]entry, error) {
		calls++
		return []entry{{ID: calls}}, nil
	}

	got, hit, err := GetOrLoad(ctx, mc, "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []entry{{ID: 1}}, got)

	got, hit, err = GetOrLoad(ctx, mc, "k", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []entry{{ID: 1}}, got)
	assert.Equal(t, 1, calls)

	got, hit, err = GetOrLoad[[]entry](ctx, nil, "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []entry{{ID: 2}}, got)
}
