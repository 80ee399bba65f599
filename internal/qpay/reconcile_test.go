package qpay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/repository/memory"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingNotifier) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingNotifier) PaymentCompleted(_ context.Context, e Event) error { return r.record(e) }
func (r *recordingNotifier) PaymentFailed(_ context.Context, e Event) error    { return r.record(e) }
func (r *recordingNotifier) ReviewRequired(_ context.Context, e Event) error   { return r.record(e) }

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// stallingNotifier blocks until its context ends, like a relay that never
// answers.
type stallingNotifier struct {
	hadDeadline atomic.Bool
}

func (s *stallingNotifier) wait(ctx context.Context) error {
	_, ok := ctx.Deadline()
	s.hadDeadline.Store(ok)
	<-ctx.Done()
	return ctx.Err()
}

func (s *stallingNotifier) PaymentCompleted(ctx context.Context, _ Event) error { return s.wait(ctx) }
func (s *stallingNotifier) PaymentFailed(ctx context.Context, _ Event) error    { return s.wait(ctx) }
func (s *stallingNotifier) ReviewRequired(ctx context.Context, _ Event) error   { return s.wait(ctx) }

type countingNotices struct {
	flagged atomic.Int32
}

func (c *countingNotices) Flag(int64) { c.flagged.Add(1) }

type reconcileFixture struct {
	repo     *memory.OrderRepository
	notifier *recordingNotifier
	notices  *countingNotices
	r        *Reconciler
}

func newReconcileFixture(t *testing.T, total string) *reconcileFixture {
	t.Helper()

	repo := memory.NewOrderRepository()
	o := testOrder()
	o.Total = decimal.RequireFromString(total)
	require.NoError(t, repo.Create(context.Background(), o))

	f := &reconcileFixture{
		repo:     repo,
		notifier: &recordingNotifier{},
		notices:  &countingNotices{},
	}
	f.r = NewReconciler(ReconcilerConfig{
		VerifyAmount:  true,
		AmountEpsilon: decimal.RequireFromString("0.01"),
		URLs: StoreURLs{
			BaseURL:           "https://shop.example/",
			CheckoutPath:      "/checkout/",
			OrderReceivedPath: "/checkout/order-received/{id}/",
		},
		Messages: DefaultMessages(),
	}, repo, WithNotifier(f.notifier), WithNotices(f.notices))
	return f
}

func (f *reconcileFixture) order(t *testing.T) *order.Order {
	t.Helper()
	o, err := f.repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	return o
}

func TestReconcile_Success(t *testing.T) {
	f := newReconcileFixture(t, "100.50")

	out, err := f.r.Reconcile(context.Background(), signedNotification(StatusSuccess, "10050"))
	require.NoError(t, err)

	assert.Equal(t, ActionPaid, out.Action)
	assert.Equal(t, order.StatusProcessing, out.Status)
	assert.Equal(t, "https://shop.example/checkout/order-received/1/?key=wc_order_abc", out.Redirect)
	assert.NoError(t, out.Err)

	o := f.order(t)
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.Equal(t, StatusSuccess, o.TransactionID)
	assert.Equal(t, "100.50", o.Meta[order.MetaAmountNet])
	assert.Equal(t, "0.00", o.Meta[order.MetaAmountFee])
	assert.Equal(t, []string{notePaid}, o.Notes)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, ActionPaid, f.notifier.events[0].Action)
	assert.Equal(t, int32(0), f.notices.flagged.Load())
}

func TestReconcile_FeeIsDifferenceWithinEpsilon(t *testing.T) {
	f := newReconcileFixture(t, "100.51")

	out, err := f.r.Reconcile(context.Background(), signedNotification(StatusSuccess, "10050"))
	require.NoError(t, err)
	assert.Equal(t, ActionPaid, out.Action)
	assert.Equal(t, "0.01", f.order(t).Meta[order.MetaAmountFee])
}

func TestReconcile_Failure(t *testing.T) {
	f := newReconcileFixture(t, "100.50")
	n := signedNotification("1001", "10050")
	n.StatusMessage = "Card+Declined"

	out, err := f.r.Reconcile(context.Background(), n)
	require.NoError(t, err)

	assert.Equal(t, ActionFailed, out.Action)
	assert.Equal(t, "https://shop.example/checkout/?order_id=1", out.Redirect)
	assert.Equal(t, "Payment failed via ITN: Card Declined (status 1001).", out.Reason)

	o := f.order(t)
	assert.Equal(t, order.StatusFailed, o.Status)
	assert.NotContains(t, o.Meta, order.MetaAmountNet)
	assert.Empty(t, o.TransactionID)
	assert.Equal(t, []string{out.Reason}, o.Notes)

	assert.Equal(t, int32(1), f.notices.flagged.Load())
	assert.Equal(t, 1, f.notifier.count())
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newReconcileFixture(t, "100.50")
	n := signedNotification(StatusSuccess, "10050")

	_, err := f.r.Reconcile(context.Background(), n)
	require.NoError(t, err)
	first := f.order(t)

	out, err := f.r.Reconcile(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicate, out.Action)
	assert.Empty(t, out.Redirect)

	_, err = f.r.Reconcile(context.Background(), signedNotification("1001", "10050"))
	require.NoError(t, err)

	assert.Equal(t, first, f.order(t))
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, int32(0), f.notices.flagged.Load())
}

func TestReconcile_ConcurrentDeliveries(t *testing.T) {
	f := newReconcileFixture(t, "100.50")
	n := signedNotification(StatusSuccess, "10050")

	var (
		wg   sync.WaitGroup
		paid atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.r.Reconcile(context.Background(), n)
			if err == nil && out.Action == ActionPaid {
				paid.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), paid.Load())
	assert.Equal(t, 1, f.notifier.count())
	assert.Len(t, f.order(t).Notes, 1)
}

func TestReconcile_AmountMismatch(t *testing.T) {
	f := newReconcileFixture(t, "100.50")

	out, err := f.r.Reconcile(context.Background(), signedNotification(StatusSuccess, "5000"))
	require.NoError(t, err)

	assert.Equal(t, ActionReview, out.Action)
	assert.ErrorIs(t, out.Err, ErrAmountMismatch)

	o := f.order(t)
	assert.Equal(t, order.StatusOnHold, o.Status)
	assert.Equal(t, "50.00", o.Meta[order.MetaAmountNet])
	assert.NotContains(t, o.Meta, order.MetaAmountFee)
	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, ActionReview, f.notifier.events[0].Action)
}

func TestReconcile_AmountCheckDisabled(t *testing.T) {
	f := newReconcileFixture(t, "100.50")
	f.r.cfg.VerifyAmount = false

	out, err := f.r.Reconcile(context.Background(), signedNotification(StatusSuccess, "5000"))
	require.NoError(t, err)
	assert.Equal(t, ActionPaid, out.Action)
	assert.Equal(t, "50.50", f.order(t).Meta[order.MetaAmountFee])
}

func TestReconcile_UnknownOrder(t *testing.T) {
	tests := []struct {
		name string
		n    func() *Notification
	}{
		{"missing order", func() *Notification {
			n := signedNotification(StatusSuccess, "10050")
			n.PUN = "404"
			return n
		}},
		{"non numeric purchase number", func() *Notification {
			n := signedNotification(StatusSuccess, "10050")
			n.PUN = "abc"
			return n
		}},
		{"session key mismatch", func() *Notification {
			n := signedNotification(StatusSuccess, "10050")
			n.MerchantSessionID = "wc_order_other"
			return n
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcileFixture(t, "100.50")

			_, err := f.r.Reconcile(context.Background(), tt.n())
			assert.ErrorIs(t, err, ErrUnknownOrder)
			assert.Equal(t, order.StatusPending, f.order(t).Status)
			assert.Zero(t, f.notifier.count())
		})
	}
}

func TestReconcile_NotifierErrorIsNotReturned(t *testing.T) {
	f := newReconcileFixture(t, "100.50")
	f.notifier.err = errors.New("smtp down")

	out, err := f.r.Reconcile(context.Background(), signedNotification(StatusSuccess, "10050"))
	require.NoError(t, err)
	assert.Equal(t, ActionPaid, out.Action)
}

func TestReconcile_StalledNotifierIsBounded(t *testing.T) {
	repo := memory.NewOrderRepository()
	require.NoError(t, repo.Create(context.Background(), testOrder()))

	stall := &stallingNotifier{}
	core, logs := observer.New(zapcore.ErrorLevel)
	r := NewReconciler(ReconcilerConfig{
		Messages:      DefaultMessages(),
		NotifyTimeout: 50 * time.Millisecond,
	}, repo,
		WithNotifier(stall),
		WithReconcilerLogger(logger.FromZap(zap.New(core)), nil),
	)

	ctx, _ := logger.WithRequestID(context.Background(), logger.Noop(), "req-42")

	done := make(chan Outcome, 1)
	go func() {
		out, err := r.Reconcile(ctx, signedNotification(StatusSuccess, "10000"))
		assert.NoError(t, err)
		done <- out
	}()

	select {
	case out := <-done:
		assert.Equal(t, ActionPaid, out.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("Reconcile() waited on a stalled notifier past its timeout")
	}

	assert.True(t, stall.hadDeadline.Load())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()[logger.RequestIDKey])
}

func TestReconcile_DispatchSurvivesCancelledRequest(t *testing.T) {
	f := newReconcileFixture(t, "100.00")

	ctx, cancel := context.WithCancel(context.Background())
	notifier := &ctxCheckingNotifier{}
	f.r.notifier = notifier

	cancelOnClaim := &cancellingRepo{Repository: f.repo, cancel: cancel}
	f.r.repo = cancelOnClaim

	_, err := f.r.Reconcile(ctx, signedNotification(StatusSuccess, "10000"))
	require.NoError(t, err)
	assert.NoError(t, notifier.ctxErr)
}

type ctxCheckingNotifier struct {
	ctxErr error
}

func (c *ctxCheckingNotifier) check(ctx context.Context) error {
	c.ctxErr = ctx.Err()
	return nil
}

func (c *ctxCheckingNotifier) PaymentCompleted(ctx context.Context, _ Event) error {
	return c.check(ctx)
}

func (c *ctxCheckingNotifier) PaymentFailed(ctx context.Context, _ Event) error {
	return c.check(ctx)
}

func (c *ctxCheckingNotifier) ReviewRequired(ctx context.Context, _ Event) error {
	return c.check(ctx)
}

// cancellingRepo cancels the caller's context right after a successful claim.
type cancellingRepo struct {
	order.Repository
	cancel context.CancelFunc
}

func (c *cancellingRepo) Transition(ctx context.Context, id int64, from order.Status, t order.Transition) (bool, error) {
	ok, err := c.Repository.Transition(ctx, id, from, t)
	c.cancel()
	return ok, err
}
