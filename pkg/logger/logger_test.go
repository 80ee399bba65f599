package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/VladKovDev/qpay-gateway/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_RejectsUnknownSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggerConfig
	}{
		{"level", config.LoggerConfig{Level: "loud", Format: "json", Output: "stdout"}},
		{"format", config.LoggerConfig{Level: "info", Format: "xml", Output: "stdout"}},
		{"output", config.LoggerConfig{Level: "info", Format: "json", Output: "syslog"}},
		{"file without path", config.LoggerConfig{Level: "info", Format: "json", Output: "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)
	require.True(t, l.Enabled(zapcore.DebugLevel))

	l.Info("hello")
	require.NoError(t, l.Sync())
	require.FileExists(t, path)
}

func TestGate(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := FromZap(zap.New(core))

	Gate(base, false).Info("hidden")
	Gate(base, true).Info("shown")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "shown", logs.All()[0].Message)
}

func TestContextRoundTrip(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := FromZap(zap.New(core))

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	FromContext(ctx, Noop()).Info("scoped")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "req-1", logs.All()[0].ContextMap()[RequestIDKey])

	require.NotNil(t, FromContext(context.Background(), Noop()))
}

func TestScoped(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	named := FromZap(zap.New(core)).Named("qpay")

	ctx, _ := WithRequestID(context.Background(), Noop(), "req-2")
	require.Equal(t, "req-2", RequestID(ctx))

	Scoped(ctx, named).Info("tagged")
	Scoped(context.Background(), named).Info("untagged")

	require.Equal(t, 2, logs.Len())
	require.Equal(t, "req-2", logs.All()[0].ContextMap()[RequestIDKey])
	require.Equal(t, "qpay", logs.All()[0].LoggerName)
	require.NotContains(t, logs.All()[1].ContextMap(), RequestIDKey)
}
