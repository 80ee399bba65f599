package qpay

import (
	"context"
	"net"
	"testing"

	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var processorIP = net.ParseIP("10.0.0.1")

func newTestValidator(testMode bool) (*Validator, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	v := NewValidator(ValidatorConfig{
		MerchantKey:       testKey,
		TestMode:          testMode,
		TrustForwardedFor: true,
		Messages:          DefaultMessages(),
	}, StaticAllowlist{processorIP}, log, log)
	return v, logs
}

func TestValidator_AcceptsSignedNotification(t *testing.T) {
	v, _ := newTestValidator(false)

	res := v.Validate(context.Background(), signedNotification(StatusSuccess, "10050"), Source{RemoteAddr: "10.0.0.1:443"})
	assert.True(t, res.OK)
	assert.NoError(t, res.Reason)
}

func TestValidator_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		testMode bool
		n        func() *Notification
		src      Source
		want     error
	}{
		{
			name: "empty payload",
			n:    func() *Notification { return nil },
			src:  Source{RemoteAddr: "10.0.0.1:443"},
			want: ErrBadAccess,
		},
		{
			name: "missing hash",
			n: func() *Notification {
				n := signedNotification(StatusSuccess, "10050")
				n.SecureHash = ""
				return n
			},
			src:  Source{RemoteAddr: "10.0.0.1:443"},
			want: ErrBadAccess,
		},
		{
			name: "wrong merchant key",
			n: func() *Notification {
				n := signedNotification(StatusSuccess, "10050")
				n.Sign("another-key")
				return n
			},
			src:  Source{RemoteAddr: "10.0.0.1:443"},
			want: ErrInvalidSignature,
		},
		{
			name: "tampered amount",
			n: func() *Notification {
				n := signedNotification(StatusSuccess, "10050")
				n.Amount = "1"
				return n
			},
			src:  Source{RemoteAddr: "10.0.0.1:443"},
			want: ErrInvalidSignature,
		},
		{
			name: "unknown source",
			n:    func() *Notification { return signedNotification(StatusSuccess, "10050") },
			src:  Source{RemoteAddr: "192.0.2.7:443"},
			want: ErrBadSourceIP,
		},
		{
			name:     "bad signature in test mode",
			testMode: true,
			n: func() *Notification {
				n := signedNotification(StatusSuccess, "10050")
				n.Status = "1001"
				return n
			},
			src:  Source{RemoteAddr: "192.0.2.7:443"},
			want: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, logs := newTestValidator(tt.testMode)

			res := v.Validate(context.Background(), tt.n(), tt.src)
			assert.False(t, res.OK)
			assert.ErrorIs(t, res.Reason, tt.want)
			assert.Equal(t, 1, logs.FilterMessage("qpay ITN rejected").Len())
		})
	}
}

func TestValidator_TestModeSkipsSourceCheck(t *testing.T) {
	v, _ := newTestValidator(true)

	res := v.Validate(context.Background(), signedNotification(StatusSuccess, "10050"), Source{RemoteAddr: "192.0.2.7:443"})
	assert.True(t, res.OK)
}

func TestValidator_ForwardedFor(t *testing.T) {
	v, _ := newTestValidator(false)
	n := signedNotification(StatusSuccess, "10050")

	res := v.Validate(context.Background(), n, Source{RemoteAddr: "127.0.0.1:5555", ForwardedFor: "10.0.0.1, 172.16.0.1"})
	assert.True(t, res.OK)

	res = v.Validate(context.Background(), n, Source{RemoteAddr: "127.0.0.1:5555", ForwardedFor: "192.0.2.7"})
	assert.ErrorIs(t, res.Reason, ErrBadSourceIP)
}

func TestValidator_RejectionLogsNeverCarryTheKey(t *testing.T) {
	v, logs := newTestValidator(false)
	n := signedNotification(StatusSuccess, "10050")
	n.Sign("another-key")

	v.Validate(context.Background(), n, Source{RemoteAddr: "10.0.0.1"})

	for _, entry := range logs.All() {
		for k, val := range entry.ContextMap() {
			s, ok := val.(string)
			if !ok {
				continue
			}
			assert.NotContains(t, s, testKey, "field %s", k)
			if k == "card_holder" {
				assert.Equal(t, redacted, s)
			}
		}
	}
}

func TestValidator_LogsCarryRequestID(t *testing.T) {
	v, logs := newTestValidator(false)
	ctx, _ := logger.WithRequestID(context.Background(), logger.Noop(), "req-7")

	res := v.Validate(ctx, signedNotification(StatusSuccess, "10050"), Source{RemoteAddr: "192.0.2.9"})
	require.False(t, res.OK)

	rejected := logs.FilterMessage("qpay ITN rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "req-7", rejected[0].ContextMap()[logger.RequestIDKey])

	for _, entry := range logs.All() {
		assert.Equal(t, "req-7", entry.ContextMap()[logger.RequestIDKey], entry.Message)
	}
}

func TestSourceIP(t *testing.T) {
	tests := []struct {
		name  string
		src   Source
		trust bool
		want  string
	}{
		{"remote with port", Source{RemoteAddr: "10.0.0.1:443"}, true, "10.0.0.1"},
		{"remote without port", Source{RemoteAddr: "10.0.0.1"}, true, "10.0.0.1"},
		{"ipv6 remote", Source{RemoteAddr: "[2001:db8::1]:443"}, true, "2001:db8::1"},
		{"forwarded first entry", Source{RemoteAddr: "127.0.0.1:1", ForwardedFor: " 10.0.0.9 , 10.0.0.1"}, true, "10.0.0.9"},
		{"forwarded garbage falls back", Source{RemoteAddr: "127.0.0.1:1", ForwardedFor: "unknown"}, true, "127.0.0.1"},
		{"forwarded untrusted", Source{RemoteAddr: "127.0.0.1:1", ForwardedFor: "10.0.0.9"}, false, "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := SourceIP(tt.src, tt.trust)
			require.NotNil(t, ip)
			assert.Equal(t, tt.want, ip.String())
		})
	}

	assert.Nil(t, SourceIP(Source{RemoteAddr: "pipe"}, true))
}
