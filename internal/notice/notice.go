package notice

import (
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/cache"
)

const (
	CacheName  = "notice"
	DefaultTTL = 120 * time.Second
)

// Store holds one-time failed-payment flags. A flag is shown at most once and
// disappears after its TTL whether or not anyone read it.
type Store struct {
	cache cache.Cache[int64, struct{}]
	ttl   time.Duration
}

func NewStore(c cache.Cache[int64, struct{}], ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

func (s *Store) Flag(orderID int64) {
	s.cache.Put(orderID, struct{}{}, s.ttl)
}

// Consume reports whether a flag was set and clears it.
func (s *Store) Consume(orderID int64) bool {
	_, ok := s.cache.Take(orderID)
	return ok
}
