package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusOnHold     Status = "on-hold"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

const (
	MetaAmountNet = "qpay_amount_net"
	MetaAmountFee = "qpay_amount_fee"
)

// Terminal reports whether an ITN may no longer move the order. Only pending
// orders accept a payment outcome.
func (s Status) Terminal() bool {
	return s != StatusPending
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusOnHold, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// Order is the slice of a store order the payment gateway reads and writes.
type Order struct {
	ID            int64
	Key           string
	Total         decimal.Decimal
	Currency      string
	ItemCount     int
	BillingEmail  string
	CustomerName  string
	Status        Status
	TransactionID string
	Meta          map[string]string
	Notes         []string
}

func (o *Order) Validate() error {
	if o.ID <= 0 {
		return errors.New("order id must be positive")
	}
	if o.Key == "" {
		return errors.New("order key is required")
	}
	if !o.Total.IsPositive() {
		return fmt.Errorf("order total must be positive, got %s", o.Total.String())
	}
	if !o.Status.Valid() {
		return fmt.Errorf("unknown order status %q", o.Status)
	}
	return nil
}

// Clone returns a deep copy so callers can hand snapshots to side-effect code.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Meta = make(map[string]string, len(o.Meta))
	for k, v := range o.Meta {
		cp.Meta[k] = v
	}
	cp.Notes = append([]string(nil), o.Notes...)
	return &cp
}

// Transition is the set of writes applied together with a status change.
type Transition struct {
	To            Status
	TransactionID string
	Note          string
	Meta          map[string]string
}

// Apply mutates o in memory the same way a repository persists t.
func (o *Order) Apply(t Transition) {
	o.Status = t.To
	if t.TransactionID != "" {
		o.TransactionID = t.TransactionID
	}
	if len(t.Meta) > 0 && o.Meta == nil {
		o.Meta = make(map[string]string, len(t.Meta))
	}
	for k, v := range t.Meta {
		o.Meta[k] = v
	}
	if t.Note != "" {
		o.Notes = append(o.Notes, t.Note)
	}
}
