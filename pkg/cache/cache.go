package cache

import (
	"time"
)

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V, ttl time.Duration)
	Take(key K) (V, bool)
	Has(key K) bool
	Len() int
	Purge()
	StartCleanup(interval time.Duration)
	StopCleanup()
}
