package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	c, err := NewCache(Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", "value1", 0))
	v, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ttl_key", "val", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, err := c.Get(ctx, "ttl_key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDel(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "k", "v", 0)
	_ = c.Del(ctx, "k")
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lease", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lease", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := c.Get(ctx, "lease")
	assert.Equal(t, "a", v)
}

func TestSetNXAfterExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_, _ = c.SetNX(ctx, "lease", "a", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	ok, err := c.SetNX(ctx, "lease", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpire(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "k", "v", 10*time.Millisecond)
	require.NoError(t, c.Expire(ctx, "k", time.Minute))
	time.Sleep(20 * time.Millisecond)
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	assert.ErrorIs(t, c.Expire(ctx, "missing", time.Minute), ErrNotFound)
}

func TestHash(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "h", "a", "1"))
	n, err := c.HIncrBy(ctx, "h", "a", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = c.HIncrBy(ctx, "h", "b", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "1"}, all)

	_ = c.HSet(ctx, "h", "bad", "x")
	_, err = c.HIncrBy(ctx, "h", "bad", 1)
	assert.Error(t, err)

	empty, err := c.HGetAll(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHIncrByConcurrent(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.HIncrBy(ctx, "picks", "char_id_1", 1)
		}()
	}
	wg.Wait()
	all, _ := c.HGetAll(ctx, "picks")
	assert.Equal(t, "50", all["char_id_1"])
}
