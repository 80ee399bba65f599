package app

import (
	"context"
	"fmt"
	"os"

	"github.com/VladKovDev/qpay-gateway/internal/config"
	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/notify"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/internal/repository/postgres"
	"github.com/VladKovDev/qpay-gateway/internal/server"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/VladKovDev/qpay-gateway/pkg/metric"
	"go.uber.org/zap"
)

// App holds high-level application dependencies.
type App struct {
	Config    *config.Config
	Logger    logger.Logger
	Metrics   metric.Factory
	DB        *postgres.Pool
	Orders    order.Repository
	Publisher *notify.EventPublisher
	Handler   *server.Handler
	Server    *server.Server

	caches []stopper
}

type stopper interface {
	StopCleanup()
}

func Run(ctx context.Context) error {
	configPath := os.Getenv("QPAY_GATEWAY_CONFIG_PATH")
	cfg, err := initConfig(configPath, ctx)
	if err != nil {
		return fmt.Errorf("failed to init config: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()
	logger.Debug("logger debug enabled...")

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Server.Start(ctx)
	}()

	return gracefulShutdown(ctx, cancel, logger, app, serverErr)
}

// NewApp builds every component from cfg. Nothing is listening yet.
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	app := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metric.NewFactory(),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if missing := cfg.Qpay.MissingCredentials(); len(missing) > 0 {
		log.Warn("qpay merchant settings are incomplete, payments will be refused",
			zap.Strings("missing", missing),
		)
	}

	if err := app.initOrders(ctx); err != nil {
		return nil, fmt.Errorf("failed to init order store: %w", err)
	}

	notices, err := app.initNotices()
	if err != nil {
		return nil, fmt.Errorf("failed to init notices: %w", err)
	}

	allowlist, err := app.initAllowlist()
	if err != nil {
		return nil, fmt.Errorf("failed to init allowlist: %w", err)
	}

	notifier, err := app.initNotifier()
	if err != nil {
		return nil, fmt.Errorf("failed to init notifier: %w", err)
	}

	messages := qpay.DefaultMessages()
	qpayLog := log.Named("qpay")
	trace := logger.Gate(qpayLog, cfg.Qpay.LoggingEnabled)

	validator := qpay.NewValidator(qpay.ValidatorConfig{
		MerchantKey:       cfg.Qpay.MerchantKey,
		TestMode:          cfg.Qpay.TestMode,
		TrustForwardedFor: cfg.Qpay.TrustForwardedFor,
		VerbosePayload:    cfg.Qpay.VerbosePayloadLogging,
		Messages:          messages,
	}, allowlist, qpayLog, trace)

	reconciler := qpay.NewReconciler(qpay.ReconcilerConfig{
		VerifyAmount:   cfg.Qpay.VerifyAmount,
		AmountEpsilon:  amountEpsilon(cfg.Qpay.AmountEpsilon),
		VerbosePayload: cfg.Qpay.VerbosePayloadLogging,
		URLs: qpay.StoreURLs{
			BaseURL:           cfg.Store.BaseURL,
			CheckoutPath:      cfg.Store.CheckoutPath,
			OrderReceivedPath: cfg.Store.OrderReceivedPath,
		},
		Messages:      messages,
		NotifyTimeout: cfg.Qpay.NotifyTimeout,
	}, app.Orders,
		qpay.WithNotifier(notifier),
		qpay.WithNotices(notices),
		qpay.WithReconcilerMetrics(app.Metrics.ITN()),
		qpay.WithReconcilerLogger(qpayLog, trace),
	)

	builder := qpay.NewBuilder(credentials(cfg))

	app.Handler = server.NewHandler(server.Deps{
		Validator:  validator,
		Reconciler: reconciler,
		Builder:    builder,
		Orders:     app.Orders,
		Notices:    notices,
		Messages:   messages,
		Metrics:    app.Metrics,
		Log:        log.Named("http"),
		ITNPath:    cfg.Server.ITNPath,
		Health:     app.healthChecker(),
	})
	app.Server = server.New(cfg.Server, app.Handler.Engine(), log)

	return app, nil
}

func initConfig(configPath string, ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(configPath, ctx)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(cfg.Logger)
}

func credentials(cfg *config.Config) qpay.Credentials {
	return qpay.Credentials{
		MerchantID:        cfg.Qpay.MerchantID,
		MerchantKey:       cfg.Qpay.MerchantKey,
		BankID:            cfg.Qpay.BankID,
		TestMode:          cfg.Qpay.TestMode,
		CurrencyCode:      cfg.Qpay.CurrencyCode,
		StoreCurrency:     cfg.Qpay.StoreCurrency,
		CurrencyAllowlist: cfg.Qpay.CurrencyAllowlist,
		CallbackURL:       callbackURL(cfg),
	}
}

// callbackURL defaults to the ITN endpoint under the store's base URL.
func callbackURL(cfg *config.Config) string {
	if cfg.Qpay.CallbackURL != "" {
		return cfg.Qpay.CallbackURL
	}
	base := cfg.Store.BaseURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + cfg.Server.ITNPath
}
