package notify

import (
	"context"
	"errors"

	"github.com/VladKovDev/qpay-gateway/internal/qpay"
)

// Fanout calls every notifier in order and joins their errors. One failing
// notifier does not stop the others.
type Fanout []qpay.Notifier

var _ qpay.Notifier = Fanout(nil)

func (f Fanout) PaymentCompleted(ctx context.Context, e qpay.Event) error {
	return f.each(func(n qpay.Notifier) error { return n.PaymentCompleted(ctx, e) })
}

func (f Fanout) PaymentFailed(ctx context.Context, e qpay.Event) error {
	return f.each(func(n qpay.Notifier) error { return n.PaymentFailed(ctx, e) })
}

func (f Fanout) ReviewRequired(ctx context.Context, e qpay.Event) error {
	return f.each(func(n qpay.Notifier) error { return n.ReviewRequired(ctx, e) })
}

func (f Fanout) each(call func(qpay.Notifier) error) error {
	var errs []error
	for _, n := range f {
		if err := call(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
