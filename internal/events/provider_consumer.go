package events

import (
	"context"
	"fmt"

	"github.com/belmonthotel/service-reservation/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	// TopicProviderEvents carries invoice lifecycle callbacks from the
	// payment provider bridge.
	TopicProviderEvents = "payment.provider.events"

	EventInvoicePaid    = "invoice.paid"
	EventInvoiceExpired = "invoice.expired"
	EventInvoiceFailed  = "invoice.failed"
	EventInvoiceVoided  = "invoice.voided"
)

// InvoiceEvent is the payload of every provider invoice callback.
type InvoiceEvent struct {
	InvoiceID     string `json:"invoice_id"`
	ExternalID    string `json:"external_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// InvoiceReconciler settles provider invoice outcomes against reservation
// state. Implemented by the payment application service.
type InvoiceReconciler interface {
	HandleInvoicePaid(ctx context.Context, invoiceID string) error
	HandleInvoiceExpired(ctx context.Context, invoiceID string) error
	HandleInvoiceFailed(ctx context.Context, invoiceID, reason string) error
	HandleInvoiceVoided(ctx context.Context, invoiceID string) error
}

// ProviderEventConsumer routes provider invoice CloudEvents into the payment
// reconciler. It is the async twin of the webhook endpoint; both paths land
// in the same idempotent handlers.
type ProviderEventConsumer struct {
	consumer   *kafka.Consumer
	paymentSvc InvoiceReconciler
	logger     *zap.Logger
}

// NewProviderEventConsumer creates a consumer for provider invoice events.
func NewProviderEventConsumer(consumer *kafka.Consumer, paymentSvc InvoiceReconciler, logger *zap.Logger) *ProviderEventConsumer {
	return &ProviderEventConsumer{
		consumer:   consumer,
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

// Start consumes provider events until ctx is cancelled.
func (c *ProviderEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handle)
}

func (c *ProviderEventConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		return fmt.Errorf("malformed event envelope at offset %d: %w", msg.Offset, err)
	}

	var payload InvoiceEvent
	if err := event.ParseData(&payload); err != nil {
		return fmt.Errorf("malformed invoice event %s: %w", event.ID, err)
	}
	if payload.InvoiceID == "" {
		return fmt.Errorf("invoice event %s has no invoice_id", event.ID)
	}

	c.logger.Info("received provider invoice event",
		zap.String("event_type", event.Type),
		zap.String("invoice_id", payload.InvoiceID),
	)

	switch event.Type {
	case EventInvoicePaid:
		return c.paymentSvc.HandleInvoicePaid(ctx, payload.InvoiceID)
	case EventInvoiceExpired:
		return c.paymentSvc.HandleInvoiceExpired(ctx, payload.InvoiceID)
	case EventInvoiceFailed:
		return c.paymentSvc.HandleInvoiceFailed(ctx, payload.InvoiceID, payload.FailureReason)
	case EventInvoiceVoided:
		return c.paymentSvc.HandleInvoiceVoided(ctx, payload.InvoiceID)
	default:
		c.logger.Debug("ignoring unhandled provider event", zap.String("event_type", event.Type))
		return nil
	}
}
