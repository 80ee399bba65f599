package qpay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/VladKovDev/qpay-gateway/pkg/metric"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Action string

const (
	ActionPaid      Action = "paid"
	ActionFailed    Action = "failed"
	ActionReview    Action = "review"
	ActionDuplicate Action = "duplicate"
)

const (
	notePaid      = "ITN payment completed"
	noteFailedFmt = "Payment failed via ITN: %s (status %s)."
	noteReviewFmt = "ITN payment received but needs review: %s (notified %s, order total %s)."
)

// Outcome describes what a notification did to its order. Redirect is where
// the buyer's browser should land, empty for duplicates.
type Outcome struct {
	Action   Action
	OrderID  int64
	Status   order.Status
	Redirect string

	// Reason is the human text for failed or review outcomes.
	Reason string
	// Err carries a non-fatal condition such as ErrAmountMismatch.
	Err error
}

// Event is handed to notifiers after an order has been claimed. Order is a
// snapshot taken after the transition.
type Event struct {
	Action       Action
	Order        *order.Order
	Notification *Notification
	Reason       string
	OccurredAt   time.Time
}

type Notifier interface {
	PaymentCompleted(ctx context.Context, e Event) error
	PaymentFailed(ctx context.Context, e Event) error
	ReviewRequired(ctx context.Context, e Event) error
}

// Notices records the one-time failed-payment banner for an order.
type Notices interface {
	Flag(orderID int64)
}

// StoreURLs builds buyer redirect targets.
type StoreURLs struct {
	BaseURL           string
	CheckoutPath      string
	OrderReceivedPath string
}

func (s StoreURLs) OrderReceived(o *order.Order) string {
	path := strings.ReplaceAll(s.OrderReceivedPath, "{id}", strconv.FormatInt(o.ID, 10))
	return s.join(path, url.Values{"key": {o.Key}})
}

func (s StoreURLs) Checkout(orderID int64) string {
	return s.join(s.CheckoutPath, url.Values{"order_id": {strconv.FormatInt(orderID, 10)}})
}

func (s StoreURLs) join(path string, q url.Values) string {
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/") + "?" + q.Encode()
}

const DefaultNotifyTimeout = 15 * time.Second

type ReconcilerConfig struct {
	VerifyAmount   bool
	AmountEpsilon  decimal.Decimal
	VerbosePayload bool
	URLs           StoreURLs
	Messages       Messages

	// NotifyTimeout bounds notifier dispatch after a claim. Zero means
	// DefaultNotifyTimeout.
	NotifyTimeout time.Duration
}

type Reconciler struct {
	cfg      ReconcilerConfig
	repo     order.Repository
	notifier Notifier
	notices  Notices
	metrics  metric.ITN
	log      logger.Logger
	trace    logger.Logger
	now      func() time.Time
}

type ReconcilerOption func(*Reconciler)

func WithNotifier(n Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		r.notifier = n
	}
}

func WithNotices(n Notices) ReconcilerOption {
	return func(r *Reconciler) {
		r.notices = n
	}
}

func WithReconcilerMetrics(m metric.ITN) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithReconcilerLogger sets the logger for warnings and errors and the gated
// logger for per-transaction trace lines.
func WithReconcilerLogger(log, trace logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
		if trace != nil {
			r.trace = trace
		}
	}
}

func NewReconciler(cfg ReconcilerConfig, repo order.Repository, opts ...ReconcilerOption) *Reconciler {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	r := &Reconciler{
		cfg:     cfg,
		repo:    repo,
		metrics: metric.Noop().ITN(),
		log:     logger.Noop(),
		trace:   logger.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile applies a validated notification to its order. Only the caller
// that moves the order out of pending runs side effects; later deliveries
// for the same order report ActionDuplicate.
func (r *Reconciler) Reconcile(ctx context.Context, n *Notification) (Outcome, error) {
	if n == nil {
		return Outcome{}, fmt.Errorf("%w: empty notification", ErrBadAccess)
	}

	trace := logger.Scoped(ctx, r.trace)

	o, err := r.lookup(ctx, n)
	if err != nil {
		r.metrics.ReconcileFailed(Kind(err))
		return Outcome{}, err
	}

	if o.Status.Terminal() {
		trace.Info("order already settled, ITN ignored",
			zap.Int64("order_id", o.ID),
			zap.String("status", string(o.Status)),
		)
		r.metrics.Reconciled(string(ActionDuplicate))
		return Outcome{Action: ActionDuplicate, OrderID: o.ID, Status: o.Status}, nil
	}

	out, tr := r.plan(o, n)

	claimed, err := r.repo.Transition(ctx, o.ID, order.StatusPending, tr)
	if err != nil {
		r.metrics.ReconcileFailed("repository")
		return Outcome{}, fmt.Errorf("transition order %d to %s: %w", o.ID, tr.To, err)
	}
	if !claimed {
		trace.Info("order claimed by a concurrent ITN", zap.Int64("order_id", o.ID))
		r.metrics.Reconciled(string(ActionDuplicate))
		return Outcome{Action: ActionDuplicate, OrderID: o.ID, Status: tr.To}, nil
	}

	o.Apply(tr)
	trace.Info("order updated from ITN",
		zap.Int64("order_id", o.ID),
		zap.String("action", string(out.Action)),
		zap.String("status", string(o.Status)),
	)
	r.afterClaim(ctx, o, n, out)
	r.metrics.Reconciled(string(out.Action))

	return out, nil
}

func (r *Reconciler) lookup(ctx context.Context, n *Notification) (*order.Order, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(n.PUN), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: purchase number %q", ErrUnknownOrder, n.PUN)
	}

	o, err := r.repo.GetByID(ctx, id)
	if errors.Is(err, order.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrUnknownOrder, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}

	if n.MerchantSessionID != "" && n.MerchantSessionID != o.Key {
		return nil, fmt.Errorf("%w: session does not match order %d", ErrUnknownOrder, id)
	}
	return o, nil
}

func (r *Reconciler) plan(o *order.Order, n *Notification) (Outcome, order.Transition) {
	if !n.Success() {
		reason := fmt.Sprintf(noteFailedFmt, humanMessage(n.StatusMessage), n.Status)
		return Outcome{
				Action:   ActionFailed,
				OrderID:  o.ID,
				Status:   order.StatusFailed,
				Redirect: r.cfg.URLs.Checkout(o.ID),
				Reason:   reason,
			}, order.Transition{
				To:   order.StatusFailed,
				Note: reason,
			}
	}

	net, err := MajorUnits(n.Amount)
	meta := map[string]string{}
	if err == nil {
		meta[order.MetaAmountNet] = net.StringFixed(2)
	}

	if r.cfg.VerifyAmount && (err != nil || net.Sub(o.Total).Abs().GreaterThan(r.cfg.AmountEpsilon)) {
		reason := fmt.Sprintf(noteReviewFmt, r.cfg.Messages.AmountMismatch, n.Amount, o.Total.StringFixed(2))
		return Outcome{
				Action:   ActionReview,
				OrderID:  o.ID,
				Status:   order.StatusOnHold,
				Redirect: r.cfg.URLs.OrderReceived(o),
				Reason:   reason,
				Err:      ErrAmountMismatch,
			}, order.Transition{
				To:            order.StatusOnHold,
				TransactionID: n.Status,
				Note:          reason,
				Meta:          meta,
			}
	}

	if err == nil {
		meta[order.MetaAmountFee] = decimal.Max(o.Total.Sub(net), decimal.Zero).StringFixed(2)
	}
	return Outcome{
			Action:   ActionPaid,
			OrderID:  o.ID,
			Status:   order.StatusProcessing,
			Redirect: r.cfg.URLs.OrderReceived(o),
		}, order.Transition{
			To:            order.StatusProcessing,
			TransactionID: n.Status,
			Note:          notePaid,
			Meta:          meta,
		}
}

func (r *Reconciler) afterClaim(ctx context.Context, o *order.Order, n *Notification, out Outcome) {
	if out.Action == ActionFailed && r.notices != nil {
		r.notices.Flag(o.ID)
	}
	if r.notifier == nil {
		return
	}

	e := Event{
		Action:       out.Action,
		Order:        o.Clone(),
		Notification: n,
		Reason:       out.Reason,
		OccurredAt:   r.now(),
	}

	// The transition is committed. Dispatch survives a client disconnect but
	// never outlives the notify timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.NotifyTimeout)
	defer cancel()

	var err error
	switch out.Action {
	case ActionPaid:
		err = r.notifier.PaymentCompleted(ctx, e)
	case ActionFailed:
		err = r.notifier.PaymentFailed(ctx, e)
	case ActionReview:
		err = r.notifier.ReviewRequired(ctx, e)
	}
	if err != nil {
		logger.Scoped(ctx, r.log).Error("qpay notification dispatch failed",
			zap.Int64("order_id", o.ID),
			zap.String("action", string(out.Action)),
			zap.Error(err),
		)
	}
}

// humanMessage undoes the processor's '+' encoding of spaces.
func humanMessage(msg string) string {
	msg = strings.TrimSpace(strings.ReplaceAll(msg, "+", " "))
	if msg == "" {
		return "no message"
	}
	return msg
}
