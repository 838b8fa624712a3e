package payment

import (
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// Status represents the state of a payment attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Payment is the aggregate root for one payment attempt against a
// reservation. A reservation has at most one pending payment at a time;
// superseded attempts are marked terminal before a new one is created.
type Payment struct {
	id                uuid.UUID
	reservationID     uuid.UUID
	providerInvoiceID string
	method            string
	amountCents       int64
	currency          string
	status            Status
	paymentURL        string
	paidAt            *time.Time
	expiresAt         *time.Time
	failureReason     string
	version           int64
	createdAt         time.Time
	updatedAt         time.Time
}

// NewPayment creates a pending payment attempt for a reservation invoice.
func NewPayment(reservationID uuid.UUID, providerInvoiceID, method string, amountCents int64, currency, paymentURL string, expiresAt time.Time) *Payment {
	now := time.Now().UTC()
	exp := expiresAt.UTC()
	return &Payment{
		id:                uuid.New(),
		reservationID:     reservationID,
		providerInvoiceID: providerInvoiceID,
		method:            method,
		amountCents:       amountCents,
		currency:          currency,
		status:            StatusPending,
		paymentURL:        paymentURL,
		expiresAt:         &exp,
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}
}

// Reconstitute rebuilds a Payment from persisted data.
func Reconstitute(
	id, reservationID uuid.UUID,
	providerInvoiceID, method string,
	amountCents int64,
	currency string,
	status Status,
	paymentURL string,
	paidAt, expiresAt *time.Time,
	failureReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:                id,
		reservationID:     reservationID,
		providerInvoiceID: providerInvoiceID,
		method:            method,
		amountCents:       amountCents,
		currency:          currency,
		status:            status,
		paymentURL:        paymentURL,
		paidAt:            paidAt,
		expiresAt:         expiresAt,
		failureReason:     failureReason,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (p *Payment) ID() uuid.UUID             { return p.id }
func (p *Payment) ReservationID() uuid.UUID  { return p.reservationID }
func (p *Payment) ProviderInvoiceID() string { return p.providerInvoiceID }
func (p *Payment) Method() string            { return p.method }
func (p *Payment) AmountCents() int64        { return p.amountCents }
func (p *Payment) Currency() string          { return p.currency }
func (p *Payment) Status() Status            { return p.status }
func (p *Payment) PaymentURL() string        { return p.paymentURL }
func (p *Payment) PaidAt() *time.Time        { return p.paidAt }
func (p *Payment) ExpiresAt() *time.Time     { return p.expiresAt }
func (p *Payment) FailureReason() string     { return p.failureReason }
func (p *Payment) Version() int64            { return p.version }
func (p *Payment) CreatedAt() time.Time      { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time      { return p.updatedAt }

// IsTerminal reports whether the payment can no longer change state.
func (p *Payment) IsTerminal() bool {
	return p.status != StatusPending
}

// MarkPaid transitions pending -> paid and stamps paid_at.
func (p *Payment) MarkPaid(now time.Time) error {
	if p.status != StatusPending {
		return domain.NewInvalidStateError(string(p.status), string(StatusPaid))
	}
	ts := now.UTC()
	p.status = StatusPaid
	p.paidAt = &ts
	p.updatedAt = ts
	return nil
}

// MarkFailed transitions pending -> failed with the provider's reason.
func (p *Payment) MarkFailed(now time.Time, reason string) error {
	if p.status != StatusPending {
		return domain.NewInvalidStateError(string(p.status), string(StatusFailed))
	}
	p.status = StatusFailed
	p.failureReason = reason
	p.updatedAt = now.UTC()
	return nil
}

// MarkExpired transitions pending -> expired when the provider invoice
// reached its deadline unpaid.
func (p *Payment) MarkExpired(now time.Time) error {
	if p.status != StatusPending {
		return domain.NewInvalidStateError(string(p.status), string(StatusExpired))
	}
	p.status = StatusExpired
	p.updatedAt = now.UTC()
	return nil
}

// MarkCancelled transitions pending -> cancelled (invoice voided, or the
// attempt superseded by a newer one).
func (p *Payment) MarkCancelled(now time.Time, reason string) error {
	if p.status != StatusPending {
		return domain.NewInvalidStateError(string(p.status), string(StatusCancelled))
	}
	p.status = StatusCancelled
	p.failureReason = reason
	p.updatedAt = now.UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (p *Payment) IncrementVersion() {
	p.version++
	p.updatedAt = time.Now().UTC()
}
