package cache

import (
	"testing"
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(t *testing.T, capacity int) (*LRUCache[string, int], *fakeClock) {
	t.Helper()

	c, err := NewLRUCache[string, int]("test", capacity, logger.Noop(), nil)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

func TestNewLRUCache_InvalidCapacity(t *testing.T) {
	_, err := NewLRUCache[string, int]("test", 0, nil, nil)
	require.Error(t, err)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2)

	c.Put("a", 1, 0)
	c.Put("b", 2, 0)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3, 0)

	require.False(t, c.Has("b"))
	require.True(t, c.Has("a"))
	require.True(t, c.Has("c"))
	require.Equal(t, 2, c.Len())
}

func TestLRUCache_ExpiresEntries(t *testing.T) {
	c, clock := newTestCache(t, 4)

	c.Put("a", 1, time.Minute)
	c.Put("forever", 2, 0)

	clock.t = clock.t.Add(59 * time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("a")
	require.False(t, ok)
	require.True(t, c.Has("forever"))
}

func TestLRUCache_PutRefreshesExpiry(t *testing.T) {
	c, clock := newTestCache(t, 4)

	c.Put("a", 1, time.Minute)
	clock.t = clock.t.Add(50 * time.Second)
	c.Put("a", 2, time.Minute)
	clock.t = clock.t.Add(50 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestLRUCache_TakeIsOneShot(t *testing.T) {
	c, _ := newTestCache(t, 4)

	c.Put("a", 1, time.Minute)

	v, ok := c.Take("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = c.Take("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	c, clock := newTestCache(t, 4)

	c.Put("a", 1, time.Second)
	c.Put("b", 2, time.Hour)
	clock.t = clock.t.Add(2 * time.Second)

	c.cleanupExpired()

	require.Equal(t, 1, c.Len())
	require.True(t, c.Has("b"))
}

func TestLRUCache_Purge(t *testing.T) {
	c, _ := newTestCache(t, 4)
	c.Put("a", 1, 0)
	c.Put("b", 2, 0)

	c.Purge()

	require.Equal(t, 0, c.Len())
}
