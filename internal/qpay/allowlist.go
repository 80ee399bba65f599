package qpay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/cache"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/VladKovDev/qpay-gateway/pkg/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLookupTimeout = 3 * time.Second
	AllowlistCacheName   = "allowlist"
)

// Allowlist decides whether an address belongs to the processor.
type Allowlist interface {
	Contains(ctx context.Context, ip net.IP) (bool, error)
}

// StaticAllowlist is a fixed set of addresses.
type StaticAllowlist []net.IP

func (s StaticAllowlist) Contains(_ context.Context, ip net.IP) (bool, error) {
	for _, allowed := range s {
		if allowed.Equal(ip) {
			return true, nil
		}
	}
	return false, nil
}

// LookupFunc resolves a host name to textual addresses, like net.Resolver.LookupHost.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// DNSAllowlist resolves the processor's host names on demand. Each lookup is
// bounded by the configured timeout; results are cached for ttl when ttl > 0.
type DNSAllowlist struct {
	hosts   []string
	lookup  LookupFunc
	timeout time.Duration
	ttl     time.Duration
	cache   cache.Cache[string, []net.IP]
	metrics metric.ITN
	log     logger.Logger
}

type AllowlistOption func(*DNSAllowlist)

func WithLookup(fn LookupFunc) AllowlistOption {
	return func(a *DNSAllowlist) {
		a.lookup = fn
	}
}

func WithLookupTimeout(d time.Duration) AllowlistOption {
	return func(a *DNSAllowlist) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCache enables result caching. A zero ttl re-resolves on every call.
func WithCache(c cache.Cache[string, []net.IP], ttl time.Duration) AllowlistOption {
	return func(a *DNSAllowlist) {
		a.cache = c
		a.ttl = ttl
	}
}

func WithAllowlistMetrics(m metric.ITN) AllowlistOption {
	return func(a *DNSAllowlist) {
		a.metrics = m
	}
}

func WithAllowlistLogger(l logger.Logger) AllowlistOption {
	return func(a *DNSAllowlist) {
		a.log = l
	}
}

func NewDNSAllowlist(hosts []string, opts ...AllowlistOption) (*DNSAllowlist, error) {
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = normalizeHost(h); h != "" {
			normalized = append(normalized, h)
		}
	}
	if len(normalized) == 0 {
		return nil, errors.New("allowlist needs at least one host")
	}

	a := &DNSAllowlist{
		hosts:   normalized,
		lookup:  net.DefaultResolver.LookupHost,
		timeout: defaultLookupTimeout,
		metrics: metric.Noop().ITN(),
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *DNSAllowlist) Contains(ctx context.Context, ip net.IP) (bool, error) {
	if ip == nil {
		return false, errors.New("source address is not an ip")
	}

	allowed, err := a.Resolve(ctx)
	if err != nil {
		return false, err
	}
	return StaticAllowlist(allowed).Contains(ctx, ip)
}

// Resolve returns the union of every host's addresses. Hosts that fail to
// resolve are skipped; an error is returned only when none resolve.
func (a *DNSAllowlist) Resolve(ctx context.Context) ([]net.IP, error) {
	start := time.Now()

	results := make([][]net.IP, len(a.hosts))
	errs := make([]error, len(a.hosts))

	var g errgroup.Group
	for i, host := range a.hosts {
		g.Go(func() error {
			results[i], errs[i] = a.resolveHost(ctx, host)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var ips []net.IP
	for i, res := range results {
		if errs[i] != nil {
			a.log.Warn("allowlist host lookup failed",
				zap.String("host", a.hosts[i]),
				zap.Error(errs[i]),
			)
			continue
		}
		for _, ip := range res {
			if _, dup := seen[ip.String()]; dup {
				continue
			}
			seen[ip.String()] = struct{}{}
			ips = append(ips, ip)
		}
	}

	var err error
	if len(ips) == 0 {
		err = errors.New("resolve allowlist: no addresses")
		if joined := errors.Join(errs...); joined != nil {
			err = fmt.Errorf("resolve allowlist: %w", joined)
		}
	}
	a.metrics.AllowlistLookup(time.Since(start), err)

	return ips, err
}

func (a *DNSAllowlist) resolveHost(ctx context.Context, host string) ([]net.IP, error) {
	if a.cache != nil && a.ttl > 0 {
		if ips, ok := a.cache.Get(host); ok {
			return ips, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	addrs, err := a.lookup(lookupCtx, host)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", host, err)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("lookup %s: no usable addresses", host)
	}

	if a.cache != nil && a.ttl > 0 {
		a.cache.Put(host, ips, a.ttl)
	}
	return ips, nil
}

func normalizeHost(h string) string {
	h = strings.TrimSpace(h)
	if strings.Contains(h, "://") {
		if u, err := url.Parse(h); err == nil {
			return u.Hostname()
		}
	}
	return strings.TrimSuffix(h, "/")
}
