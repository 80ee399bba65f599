package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/VladKovDev/qpay-gateway/internal/config"
	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentEvent is the JSON document published for each settled ITN.
type PaymentEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	OrderID        int64     `json:"order_id"`
	OrderStatus    string    `json:"order_status"`
	Total          string    `json:"total"`
	Currency       string    `json:"currency"`
	AmountNet      string    `json:"amount_net,omitempty"`
	AmountFee      string    `json:"amount_fee,omitempty"`
	StatusCode     string    `json:"status_code"`
	StatusMessage  string    `json:"status_message"`
	ConfirmationID string    `json:"confirmation_id,omitempty"`
	CardNumber     string    `json:"card_number,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher writes payment events keyed by order id, so every event for
// one order lands on the same partition.
type EventPublisher struct {
	writer  MessageWriter
	timeout time.Duration
	log     logger.Logger
	newID   func() string
}

var _ qpay.Notifier = (*EventPublisher)(nil)

// Events are written one per settled ITN, so batches never fill.
const writerBatchTimeout = 5 * time.Millisecond

func NewKafkaWriter(cfg config.KafkaConfig, log logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: writerBatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer error", zap.String("error", fmt.Sprintf(msg, args...)))
		}),
	}
}

func NewEventPublisher(w MessageWriter, timeout time.Duration, log logger.Logger) *EventPublisher {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	return &EventPublisher{
		writer:  w,
		timeout: timeout,
		log:     log,
		newID:   func() string { return uuid.NewString() },
	}
}

func (p *EventPublisher) PaymentCompleted(ctx context.Context, e qpay.Event) error {
	return p.publish(ctx, "payment.completed", e)
}

func (p *EventPublisher) PaymentFailed(ctx context.Context, e qpay.Event) error {
	return p.publish(ctx, "payment.failed", e)
}

func (p *EventPublisher) ReviewRequired(ctx context.Context, e qpay.Event) error {
	return p.publish(ctx, "payment.review_required", e)
}

func (p *EventPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, e qpay.Event) error {
	const op = "notify.EventPublisher.publish"

	ev := newPaymentEvent(p.newID(), eventType, e)
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}

	p.log.Debug("payment event published",
		zap.String("event_id", ev.ID),
		zap.String("type", eventType),
		zap.Int64("order_id", ev.OrderID),
	)
	return nil
}

func newPaymentEvent(id, eventType string, e qpay.Event) PaymentEvent {
	ev := PaymentEvent{
		ID:         id,
		Type:       eventType,
		Reason:     e.Reason,
		OccurredAt: e.OccurredAt.UTC(),
	}
	if o := e.Order; o != nil {
		ev.OrderID = o.ID
		ev.OrderStatus = string(o.Status)
		ev.Total = o.Total.StringFixed(2)
		ev.Currency = o.Currency
		ev.AmountNet = o.Meta[order.MetaAmountNet]
		ev.AmountFee = o.Meta[order.MetaAmountFee]
	}
	if n := e.Notification; n != nil {
		ev.StatusCode = n.Status
		ev.StatusMessage = n.StatusMessage
		ev.ConfirmationID = n.ConfirmationID
		ev.CardNumber = qpay.MaskCardNumber(n.CardNumber)
	}
	return ev
}
