package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// gracefulShutdown blocks until ctx is cancelled, a signal arrives or the
// HTTP server fails. It then stops the server through cancel and releases
// resources.
func gracefulShutdown(ctx context.Context, cancel context.CancelFunc, logger logger.Logger, app *App, serverErr <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var (
		runErr     error
		serverDone bool
	)
	select {
	case <-ctx.Done():
		logger.Info("context cancelled, starting shutdown")
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-serverErr:
		serverDone = true
		if runErr != nil {
			logger.Error("HTTP server stopped", zap.Error(runErr))
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	if !serverDone {
		select {
		case runErr = <-serverErr:
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded")
			app.Close()
			return shutdownCtx.Err()
		}
	}

	app.Close()
	logger.Info("shutdown completed successfully")
	return runErr
}

// Close releases everything NewApp opened. The server must already be stopped.
func (a *App) Close() {
	for _, c := range a.caches {
		c.StopCleanup()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Error("failed to close event publisher", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.Logger.Info("closing database connections")
		a.DB.Close()
	}
}
