package qpay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration    = errors.New("qpay gateway is not configured")
	ErrInvalidOrder     = errors.New("order cannot be paid with qpay")
	ErrBadAccess        = errors.New("bad access of page")
	ErrInvalidSignature = errors.New("security signature mismatch")
	ErrBadSourceIP      = errors.New("bad source ip address")
	ErrUnknownOrder     = errors.New("notification references an unknown order")
	ErrAmountMismatch   = errors.New("notification amount does not match order total")
)

// ConfigurationError names the merchant settings that block request building.
type ConfigurationError struct {
	Missing []string
	Detail  string
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), strings.Join(parts, "; "))
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// Messages is the human-readable catalog for each error kind. Buyer-facing
// entries are deliberately generic; the rest go to logs and merchant e-mail.
type Messages struct {
	BadAccess        string
	BadSourceIP      string
	InvalidSignature string
	UnknownOrder     string
	AmountMismatch   string
	Configuration    string

	// BuyerPaymentFailed is formatted with the order id.
	BuyerPaymentFailed string
	// BuyerUnavailable is shown when a request cannot be built.
	BuyerUnavailable string
}

func DefaultMessages() Messages {
	return Messages{
		BadAccess:          "Bad access of page",
		BadSourceIP:        "Bad source IP address",
		InvalidSignature:   "Security signature mismatch",
		UnknownOrder:       "Notification references an unknown order",
		AmountMismatch:     "Paid amount does not match the order total, manual review required",
		Configuration:      "Qpay merchant settings are incomplete",
		BuyerPaymentFailed: "Payment with Debit Card failed for Order #%d. Please try again or use a different payment method.",
		BuyerUnavailable:   "Payment is currently unavailable. Please try again later.",
	}
}

// For returns the catalog text for the kind err wraps, or err's own text.
func (m Messages) For(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadAccess):
		return m.BadAccess
	case errors.Is(err, ErrBadSourceIP):
		return m.BadSourceIP
	case errors.Is(err, ErrInvalidSignature):
		return m.InvalidSignature
	case errors.Is(err, ErrUnknownOrder):
		return m.UnknownOrder
	case errors.Is(err, ErrAmountMismatch):
		return m.AmountMismatch
	case errors.Is(err, ErrConfiguration):
		return m.Configuration
	default:
		return err.Error()
	}
}

// Kind returns a short stable label for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadAccess):
		return "bad_access"
	case errors.Is(err, ErrBadSourceIP):
		return "bad_source_ip"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrUnknownOrder):
		return "unknown_order"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInvalidOrder):
		return "invalid_order"
	default:
		return "internal"
	}
}
