package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/VladKovDev/qpay-gateway/internal/qpay"
)

const (
	SubjectCompleted = "Qpay ITN on your site"
	SubjectFailed    = "Qpay ITN Transaction on your site"
	SubjectReview    = "Qpay ITN requires review"
)

// Site identifies the store in merchant e-mails.
type Site struct {
	Name string
	URL  string
}

// DebugMailer sends the merchant a summary of every settled ITN. It carries
// only the purchase number, dates and status text; card data and the
// merchant key are never included.
type DebugMailer struct {
	sender    Sender
	recipient string
	site      Site
}

var _ qpay.Notifier = (*DebugMailer)(nil)

func NewDebugMailer(sender Sender, recipient string, site Site) *DebugMailer {
	return &DebugMailer{sender: sender, recipient: recipient, site: site}
}

func (d *DebugMailer) PaymentCompleted(ctx context.Context, e qpay.Event) error {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("A Qpay transaction has been completed on your website\n")
	d.header(&b)
	fmt.Fprintf(&b, "Purchase ID: %s\n", e.Notification.PUN)
	fmt.Fprintf(&b, "Qpay transaction Date: %s\n", e.Notification.ResponseDate)
	fmt.Fprintf(&b, "Qpay Payment Status: %s\n", e.Notification.StatusMessage)
	fmt.Fprintf(&b, "Order Status Code: %s", e.Order.Status)

	return d.send(ctx, SubjectCompleted, b.String())
}

func (d *DebugMailer) PaymentFailed(ctx context.Context, e qpay.Event) error {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("A failed Qpay transaction on your website requires attention\n")
	d.header(&b)
	fmt.Fprintf(&b, "Purchase ID: %d\n", e.Order.ID)
	fmt.Fprintf(&b, "Customer: %s\n", e.Order.CustomerName)
	fmt.Fprintf(&b, "Qpay Transaction Date: %s\n", e.Notification.ResponseDate)
	fmt.Fprintf(&b, "Qpay Payment Status: %s", e.Notification.StatusMessage)

	return d.send(ctx, SubjectFailed, b.String())
}

func (d *DebugMailer) ReviewRequired(ctx context.Context, e qpay.Event) error {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("A Qpay payment was received but the order was put on hold\n")
	d.header(&b)
	fmt.Fprintf(&b, "Purchase ID: %d\n", e.Order.ID)
	fmt.Fprintf(&b, "Order total: %s %s\n", e.Order.Total.StringFixed(2), e.Order.Currency)
	fmt.Fprintf(&b, "Qpay amount (minor units): %s\n", e.Notification.Amount)
	fmt.Fprintf(&b, "Qpay Transaction Date: %s\n", e.Notification.ResponseDate)
	fmt.Fprintf(&b, "Reason: %s", e.Reason)

	return d.send(ctx, SubjectReview, b.String())
}

func (d *DebugMailer) header(b *strings.Builder) {
	b.WriteString("------------------------------------------------------------\n")
	fmt.Fprintf(b, "Site: %s (%s)\n", d.site.Name, d.site.URL)
}

func (d *DebugMailer) send(ctx context.Context, subject, body string) error {
	if err := d.sender.Send(ctx, Mail{To: d.recipient, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("debug mail %q: %w", subject, err)
	}
	return nil
}
