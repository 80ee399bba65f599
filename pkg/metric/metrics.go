package metric

import (
	"net/http"
	"time"
)

type (
	Factory interface {
		HTTP() HTTP
		ITN() ITN
		Cache() Cache
		Handler() http.Handler
	}

	HTTP interface {
		Request(method, path string, status int, duration time.Duration)
	}

	// ITN tracks inbound notification handling.
	ITN interface {
		Received()
		Rejected(reason string)
		Reconciled(action string)
		ReconcileFailed(reason string)
		AllowlistLookup(duration time.Duration, err error)
	}

	Cache interface {
		Hit(cacheType string)
		Miss(cacheType string)
		Eviction(cacheType string, reason string)
		Size(cacheType string, size int)
	}
)

// Noop returns a factory whose collectors discard everything.
func Noop() Factory {
	return noopFactory{}
}

type noopFactory struct{}

func (noopFactory) HTTP() HTTP            { return noopMetrics{} }
func (noopFactory) ITN() ITN              { return noopMetrics{} }
func (noopFactory) Cache() Cache          { return noopMetrics{} }
func (noopFactory) Handler() http.Handler { return http.NotFoundHandler() }

type noopMetrics struct{}

func (noopMetrics) Request(string, string, int, time.Duration) {}
func (noopMetrics) Received()                                  {}
func (noopMetrics) Rejected(string)                            {}
func (noopMetrics) Reconciled(string)                          {}
func (noopMetrics) ReconcileFailed(string)                     {}
func (noopMetrics) AllowlistLookup(time.Duration, error)       {}
func (noopMetrics) Hit(string)                                 {}
func (noopMetrics) Miss(string)                                {}
func (noopMetrics) Eviction(string, string)                    {}
func (noopMetrics) Size(string, int)                           {}
