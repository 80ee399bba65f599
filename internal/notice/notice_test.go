package notice

import (
	"testing"
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/cache"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FlagIsConsumedOnce(t *testing.T) {
	c, err := cache.NewLRUCache[int64, struct{}](CacheName, 16, logger.Noop(), nil)
	require.NoError(t, err)
	s := NewStore(c, time.Minute)

	assert.False(t, s.Consume(1))

	s.Flag(1)
	assert.True(t, s.Consume(1))
	assert.False(t, s.Consume(1))
}

func TestStore_FlagExpires(t *testing.T) {
	c, err := cache.NewLRUCache[int64, struct{}](CacheName, 16, logger.Noop(), nil)
	require.NoError(t, err)
	s := NewStore(c, 20*time.Millisecond)

	s.Flag(7)
	time.Sleep(40 * time.Millisecond)
	assert.False(t, s.Consume(7))
}

func TestNewStore_DefaultTTL(t *testing.T) {
	c, err := cache.NewLRUCache[int64, struct{}](CacheName, 1, logger.Noop(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, NewStore(c, 0).ttl)
}
