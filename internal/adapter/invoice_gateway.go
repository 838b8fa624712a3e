package adapter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceGateway is the anti-corruption layer for the external payment
// provider's invoice API. The gateway only opens and voids invoices; the
// provider reports outcomes asynchronously through callback events that the
// reconciler consumes.
type InvoiceGateway interface {
	// CreateInvoice opens a provider invoice for the amount and returns
	// the provider's invoice ID plus the hosted payment URL.
	CreateInvoice(ctx context.Context, externalID string, amountCents int64, currency, description string) (invoiceID, paymentURL string, err error)

	// ExpireInvoice voids an open invoice so the guest can no longer pay
	// it (used when a booking is compensated or superseded).
	ExpireInvoice(ctx context.Context, invoiceID string) error
}

// MockInvoiceGateway is a development/testing implementation that simulates
// the provider without network calls.
type MockInvoiceGateway struct {
	logger *zap.Logger
}

// NewMockInvoiceGateway creates a mock gateway for development.
func NewMockInvoiceGateway(logger *zap.Logger) *MockInvoiceGateway {
	return &MockInvoiceGateway{logger: logger}
}

// CreateInvoice simulates opening an invoice and returns mock references.
func (m *MockInvoiceGateway) CreateInvoice(ctx context.Context, externalID string, amountCents int64, currency, description string) (string, string, error) {
	invoiceID := fmt.Sprintf("inv_mock_%s", uuid.New().String()[:8])
	paymentURL := fmt.Sprintf("https://checkout.invalid/%s", invoiceID)

	m.logger.Info("[MOCK GATEWAY] invoice created",
		zap.String("invoice_id", invoiceID),
		zap.String("external_id", externalID),
		zap.Int64("amount_cents", amountCents),
		zap.String("currency", currency),
	)

	return invoiceID, paymentURL, nil
}

// ExpireInvoice simulates voiding an invoice.
func (m *MockInvoiceGateway) ExpireInvoice(ctx context.Context, invoiceID string) error {
	m.logger.Info("[MOCK GATEWAY] invoice expired",
		zap.String("invoice_id", invoiceID),
	)
	return nil
}
