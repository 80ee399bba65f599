package qpay

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"go.uber.org/zap"
)

// Source is what the transport observed about the caller.
type Source struct {
	RemoteAddr   string
	ForwardedFor string
}

// Result gates reconciliation. Reason wraps one of the Err* kinds when OK is false.
type Result struct {
	OK     bool
	Reason error
}

type ValidatorConfig struct {
	MerchantKey       string
	TestMode          bool
	TrustForwardedFor bool
	VerbosePayload    bool
	Messages          Messages
}

type Validator struct {
	cfg       ValidatorConfig
	allowlist Allowlist
	log       logger.Logger
	trace     logger.Logger
}

// NewValidator builds a validator. trace receives the per-step log lines and
// may be a gated logger; log receives every rejection.
func NewValidator(cfg ValidatorConfig, allowlist Allowlist, log, trace logger.Logger) *Validator {
	if log == nil {
		log = logger.Noop()
	}
	if trace == nil {
		trace = logger.Noop()
	}
	return &Validator{cfg: cfg, allowlist: allowlist, log: log, trace: trace}
}

// Validate runs the structural, signature and source checks in that order and
// stops at the first failure. It never touches orders.
func (v *Validator) Validate(ctx context.Context, n *Notification, src Source) Result {
	trace := logger.Scoped(ctx, v.trace)
	trace.Info("qpay ITN call received", n.LogFields(v.cfg.VerbosePayload)...)

	if n.Empty() || n.PUN == "" || n.SecureHash == "" {
		return v.reject(ctx, n, fmt.Errorf("%w: required fields missing", ErrBadAccess), false)
	}

	trace.Info("verify security SecureHash", zap.String("pun", n.PUN))
	if !Verify(v.cfg.MerchantKey, n.SecureHash, n.CanonicalFields()...) {
		return v.reject(ctx, n, ErrInvalidSignature, true)
	}

	if v.cfg.TestMode {
		trace.Info("test mode, source ip check skipped", zap.String("pun", n.PUN))
		return Result{OK: true}
	}

	ip := SourceIP(src, v.cfg.TrustForwardedFor)
	trace.Info("verify source ip", zap.String("pun", n.PUN), zap.String("source_ip", ip.String()))
	if v.allowlist == nil {
		return v.reject(ctx, n, fmt.Errorf("%w: no allowlist configured", ErrBadSourceIP), false)
	}

	ok, err := v.allowlist.Contains(ctx, ip)
	if err != nil {
		return v.reject(ctx, n, fmt.Errorf("%w: %s: %w", ErrBadSourceIP, ip, err), false)
	}
	if !ok {
		return v.reject(ctx, n, fmt.Errorf("%w: %s", ErrBadSourceIP, ip), false)
	}

	return Result{OK: true}
}

func (v *Validator) reject(ctx context.Context, n *Notification, reason error, audit bool) Result {
	fields := []zap.Field{
		zap.String("reason", v.cfg.Messages.For(reason)),
		zap.Error(reason),
	}
	if audit {
		// full payload for the audit trail, card data still masked
		fields = append(fields, n.LogFields(v.cfg.VerbosePayload)...)
	} else if n != nil {
		fields = append(fields, zap.String("pun", n.PUN))
	}
	logger.Scoped(ctx, v.log).Warn("qpay ITN rejected", fields...)

	return Result{OK: false, Reason: reason}
}

// SourceIP picks the caller address. When trustForwarded is set, the first
// X-Forwarded-For entry wins if it parses as an IP.
func SourceIP(src Source, trustForwarded bool) net.IP {
	if trustForwarded && src.ForwardedFor != "" {
		first := strings.TrimSpace(strings.Split(src.ForwardedFor, ",")[0])
		if ip := parseHostIP(first); ip != nil {
			return ip
		}
	}
	return parseHostIP(strings.TrimSpace(src.RemoteAddr))
}

func parseHostIP(addr string) net.IP {
	if ip := net.ParseIP(addr); ip != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
