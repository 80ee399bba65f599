package notify

import (
	"context"
	"fmt"

	"github.com/VladKovDev/qpay-gateway/internal/qpay"
)

// CustomerMailer tells the buyer a payment did not go through. Only failures
// produce mail; the message is the generic buyer text from the catalog.
type CustomerMailer struct {
	sender   Sender
	site     Site
	messages qpay.Messages
}

var _ qpay.Notifier = (*CustomerMailer)(nil)

func NewCustomerMailer(sender Sender, site Site, messages qpay.Messages) *CustomerMailer {
	return &CustomerMailer{sender: sender, site: site, messages: messages}
}

func (c *CustomerMailer) PaymentCompleted(context.Context, qpay.Event) error { return nil }

func (c *CustomerMailer) ReviewRequired(context.Context, qpay.Event) error { return nil }

func (c *CustomerMailer) PaymentFailed(ctx context.Context, e qpay.Event) error {
	if e.Order.BillingEmail == "" {
		return nil
	}

	greeting := "Hi,"
	if e.Order.CustomerName != "" {
		greeting = fmt.Sprintf("Hi %s,", e.Order.CustomerName)
	}
	body := fmt.Sprintf("%s\n\n%s\n\n%s\n%s",
		greeting,
		fmt.Sprintf(c.messages.BuyerPaymentFailed, e.Order.ID),
		c.site.Name,
		c.site.URL,
	)

	m := Mail{
		To:      e.Order.BillingEmail,
		Subject: fmt.Sprintf("[%s] Order #%d has failed", c.site.Name, e.Order.ID),
		Body:    body,
	}
	if err := c.sender.Send(ctx, m); err != nil {
		return fmt.Errorf("customer mail for order %d: %w", e.Order.ID, err)
	}
	return nil
}
