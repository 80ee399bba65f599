package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/VladKovDev/qpay-gateway/internal/notice"
	"github.com/VladKovDev/qpay-gateway/internal/notify"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/internal/repository/memory"
	"github.com/VladKovDev/qpay-gateway/internal/repository/postgres"
	"github.com/VladKovDev/qpay-gateway/internal/server"
	"github.com/VladKovDev/qpay-gateway/pkg/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	noticeCacheCapacity    = 10_000
	allowlistCacheCapacity = 16
	cacheCleanupInterval   = time.Minute
)

func (a *App) initOrders(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case "memory":
		a.Logger.Warn("using in-memory order store, orders are lost on restart")
		a.Orders = memory.NewOrderRepository()
		return nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, &a.Config.Database, a.Logger.Named("postgres"))
		if err != nil {
			return err
		}
		if a.Config.Database.AutoMigrate {
			if err := pool.Migrate(ctx); err != nil {
				pool.Close()
				return err
			}
		}
		a.DB = pool
		a.Orders = postgres.NewOrderRepository(pool)
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", a.Config.Database.Driver)
	}
}

func (a *App) initNotices() (*notice.Store, error) {
	c, err := cache.NewLRUCache[int64, struct{}](notice.CacheName, noticeCacheCapacity, a.Logger, a.Metrics.Cache())
	if err != nil {
		return nil, err
	}
	c.StartCleanup(cacheCleanupInterval)
	a.caches = append(a.caches, c)

	return notice.NewStore(c, a.Config.Qpay.NoticeTTL), nil
}

// initAllowlist returns nil in test mode without hosts; the validator skips
// the source check in test mode anyway.
func (a *App) initAllowlist() (qpay.Allowlist, error) {
	cfg := a.Config.Qpay
	if len(cfg.AllowlistHosts) == 0 {
		if cfg.TestMode {
			return nil, nil
		}
		return nil, errors.New("allowlist hosts are required outside test mode")
	}

	opts := []qpay.AllowlistOption{
		qpay.WithLookupTimeout(cfg.DNSTimeout),
		qpay.WithAllowlistMetrics(a.Metrics.ITN()),
		qpay.WithAllowlistLogger(a.Logger.Named("allowlist")),
	}
	if cfg.AllowlistTTL > 0 {
		c, err := cache.NewLRUCache[string, []net.IP](qpay.AllowlistCacheName, allowlistCacheCapacity, a.Logger, a.Metrics.Cache())
		if err != nil {
			return nil, err
		}
		c.StartCleanup(cacheCleanupInterval)
		a.caches = append(a.caches, c)
		opts = append(opts, qpay.WithCache(c, cfg.AllowlistTTL))
	}

	return qpay.NewDNSAllowlist(cfg.AllowlistHosts, opts...)
}

func (a *App) initNotifier() (qpay.Notifier, error) {
	var fanout notify.Fanout
	site := notify.Site{Name: a.Config.Store.Name, URL: a.Config.Store.BaseURL}

	if a.Config.SMTP.Host != "" {
		sender, err := notify.NewSMTPSender(a.Config.SMTP)
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, notify.NewCustomerMailer(sender, site, qpay.DefaultMessages()))

		if a.Config.Qpay.SendDebugEmail && a.Config.Qpay.DebugEmailRecipient != "" {
			fanout = append(fanout, notify.NewDebugMailer(sender, a.Config.Qpay.DebugEmailRecipient, site))
		}
	} else if a.Config.Qpay.SendDebugEmail {
		a.Logger.Warn("debug e-mail is enabled but smtp.host is empty, no mail will be sent")
	}

	if a.Config.Kafka.Enabled {
		w := notify.NewKafkaWriter(a.Config.Kafka, a.Logger.Named("kafka"))
		a.Publisher = notify.NewEventPublisher(w, a.Config.Kafka.WriteTimeout, a.Logger.Named("events"))
		fanout = append(fanout, a.Publisher)
		a.Logger.Info("publishing payment events",
			zap.Strings("brokers", a.Config.Kafka.Brokers),
			zap.String("topic", a.Config.Kafka.Topic),
		)
	}

	return fanout, nil
}

// healthChecker returns nil for the memory driver so /health never touches a
// nil pool.
func (a *App) healthChecker() server.HealthChecker {
	if a.DB == nil {
		return nil
	}
	return a.DB
}

func amountEpsilon(v float64) decimal.Decimal {
	if v <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
