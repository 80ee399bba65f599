package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/VladKovDev/qpay-gateway/pkg/metric"
	"go.uber.org/zap"
)

var _ Cache[string, int] = (*LRUCache[string, int])(nil)

// LRUCache is a fixed-capacity cache with optional per-entry expiry.
// Expired entries are dropped lazily on access and by the optional cleanup loop.
type LRUCache[K comparable, V any] struct {
	name    string
	items   map[K]*list.Element
	order   *list.List
	mu      sync.Mutex
	log     logger.Logger
	metrics metric.Cache
	now     func() time.Time

	capacity    int
	cleanupStop chan struct{}
}

type entry[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
}

func NewLRUCache[K comparable, V any](
	name string,
	capacity int,
	log logger.Logger,
	metrics metric.Cache,
) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache.NewLRUCache: capacity must be positive, got %d", capacity)
	}
	if log == nil {
		log = logger.Noop()
	}
	if metrics == nil {
		metrics = metric.Noop().Cache()
	}

	return &LRUCache[K, V]{
		name:     name,
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Take returns the live value for key and removes it in the same critical section.
func (c *LRUCache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.removeElement(c.items[key], "taken")
	return e.value, true
}

func (c *LRUCache[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expires = expires
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest, "lru")
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expires: expires})
	c.metrics.Size(c.name, c.order.Len())
}

func (c *LRUCache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	return !c.expired(elem.Value.(*entry[K, V]))
}

func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.items)
	c.metrics.Size(c.name, 0)
}

func (c *LRUCache[K, V]) StartCleanup(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleanupStop != nil {
		close(c.cleanupStop)
	}

	stop := make(chan struct{})
	c.cleanupStop = stop
	go c.runCleanup(interval, stop)
}

func (c *LRUCache[K, V]) StopCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleanupStop != nil {
		close(c.cleanupStop)
		c.cleanupStop = nil
	}
}

func (c *LRUCache[K, V]) runCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-stop:
			return
		}
	}
}

func (c *LRUCache[K, V]) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*entry[K, V])) {
			c.removeElement(elem, "expired")
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		c.log.Debug("cache cleanup completed",
			zap.String("cache", c.name),
			zap.Int("removed", removed),
			zap.Int("remaining", c.order.Len()),
		)
	}
}

// lookup must be called with mu held.
func (c *LRUCache[K, V]) lookup(key K) (*entry[K, V], bool) {
	elem, ok := c.items[key]
	if !ok {
		c.metrics.Miss(c.name)
		return nil, false
	}

	e := elem.Value.(*entry[K, V])
	if c.expired(e) {
		c.removeElement(elem, "expired")
		c.metrics.Miss(c.name)
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.metrics.Hit(c.name)
	return e, true
}

func (c *LRUCache[K, V]) expired(e *entry[K, V]) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element, reason string) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key)
	c.metrics.Eviction(c.name, reason)
	c.metrics.Size(c.name, c.order.Len())
}
