package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository defines the persistence contract for Payment aggregates.
type PaymentRepository interface {
	// FindByID retrieves a payment by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByProviderInvoiceID retrieves a payment by the provider's
	// invoice reference.
	FindByProviderInvoiceID(ctx context.Context, invoiceID string) (*Payment, error)

	// FindPendingByReservationID retrieves the single pending payment for
	// a reservation, if any.
	FindPendingByReservationID(ctx context.Context, reservationID uuid.UUID) (*Payment, error)

	// ListByReservationID retrieves all payment attempts for a
	// reservation, newest first.
	ListByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*Payment, error)

	// Save persists a new payment aggregate.
	Save(ctx context.Context, p *Payment) error

	// Update persists changes to an existing payment with optimistic
	// locking.
	Update(ctx context.Context, p *Payment) error
}
