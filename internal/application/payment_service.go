package application

import (
	"context"
	"errors"
	"time"

	"github.com/belmonthotel/service-reservation/internal/adapter"
	"github.com/belmonthotel/service-reservation/internal/clock"
	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/belmonthotel/service-reservation/internal/domain/payment"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/events"
	"github.com/belmonthotel/service-reservation/internal/queue"
	"github.com/belmonthotel/service-reservation/internal/saga"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcilePolicy decides what happens to a reservation whose payment
// attempt died. Within RetryWindow of the reservation's creation a fresh
// invoice is issued and the reservation stays pending; outside it the
// reservation is cancelled and its unit released.
type ReconcilePolicy struct {
	RetryWindow time.Duration
}

// PaymentService reconciles provider invoice callbacks with reservation
// state. Every handler is idempotent: a payment already in a terminal state
// makes duplicate callbacks no-ops.
type PaymentService struct {
	payments     payment.PaymentRepository
	reservations reservation.ReservationRepository
	promoSvc     *PromoService
	sagaSvc      *saga.ReservationSagaService
	serializer   *queue.Serializer
	gateway      adapter.InvoiceGateway
	publisher    EventPublisher
	clock        clock.Clock
	policy       ReconcilePolicy
	invoiceTTL   time.Duration
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	payments payment.PaymentRepository,
	reservations reservation.ReservationRepository,
	promoSvc *PromoService,
	sagaSvc *saga.ReservationSagaService,
	serializer *queue.Serializer,
	gateway adapter.InvoiceGateway,
	publisher EventPublisher,
	clk clock.Clock,
	policy ReconcilePolicy,
	invoiceTTL time.Duration,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:     payments,
		reservations: reservations,
		promoSvc:     promoSvc,
		sagaSvc:      sagaSvc,
		serializer:   serializer,
		gateway:      gateway,
		publisher:    publisher,
		clock:        clk,
		policy:       policy,
		invoiceTTL:   invoiceTTL,
		logger:       logger,
	}
}

// ListReservationPayments returns all payment attempts for a reservation,
// newest first. Guests can only read their own.
func (s *PaymentService) ListReservationPayments(ctx context.Context, actor Actor, reservationID uuid.UUID) ([]PaymentDTO, error) {
	res, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && res.GuestID() != actor.ID {
		return nil, domain.NewUnauthorizedError("reservation belongs to another guest")
	}

	list, err := s.payments.ListByReservationID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	dtos := make([]PaymentDTO, 0, len(list))
	for _, p := range list {
		dtos = append(dtos, toPaymentDTO(p))
	}
	return dtos, nil
}

// HandleInvoicePaid settles a paid invoice: the payment is marked paid, the
// reservation confirmed, the confirm ledger entry appended, and any promo
// usage counted exactly once.
func (s *PaymentService) HandleInvoicePaid(ctx context.Context, invoiceID string) error {
	pay, err := s.payments.FindByProviderInvoiceID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if pay.IsTerminal() {
		s.logger.Info("ignoring duplicate paid callback",
			zap.String("invoice_id", invoiceID),
			zap.String("payment_status", string(pay.Status())),
		)
		return nil
	}

	now := s.clock.Now()
	if err := pay.MarkPaid(now); err != nil {
		return err
	}
	pay.IncrementVersion()
	if err := s.payments.Update(ctx, pay); err != nil {
		return err
	}

	res, err := s.reservations.FindByID(ctx, pay.ReservationID())
	if err != nil {
		return err
	}

	if err := s.sagaSvc.ConfirmBooking(ctx, res, ledger.SystemActor); err != nil {
		if errors.Is(err, reservation.ErrAlreadyConfirmed) {
			return nil
		}
		return err
	}

	if err := s.promoSvc.RecordConfirmedUsage(ctx, res); err != nil {
		// The confirmation stands; a missed usage count is an audit
		// problem, not a guest-facing one.
		s.logger.Error("failed to record promo usage",
			zap.String("reservation_number", res.ReservationNumber()),
			zap.Error(err),
		)
	}

	s.publisher.Publish(ctx, events.EventReservationConfirmed, res, now)

	s.logger.Info("reservation confirmed by payment",
		zap.String("reservation_number", res.ReservationNumber()),
		zap.String("invoice_id", invoiceID),
	)
	return nil
}

// HandleInvoiceExpired settles an invoice the guest let lapse.
func (s *PaymentService) HandleInvoiceExpired(ctx context.Context, invoiceID string) error {
	return s.settleDeadInvoice(ctx, invoiceID, "invoice expired", func(p *payment.Payment, now time.Time) error {
		return p.MarkExpired(now)
	})
}

// HandleInvoiceFailed settles an invoice the provider rejected.
func (s *PaymentService) HandleInvoiceFailed(ctx context.Context, invoiceID, reason string) error {
	if reason == "" {
		reason = "payment failed"
	}
	return s.settleDeadInvoice(ctx, invoiceID, reason, func(p *payment.Payment, now time.Time) error {
		return p.MarkFailed(now, reason)
	})
}

// HandleInvoiceVoided settles an invoice voided on the provider side.
func (s *PaymentService) HandleInvoiceVoided(ctx context.Context, invoiceID string) error {
	return s.settleDeadInvoice(ctx, invoiceID, "invoice voided", func(p *payment.Payment, now time.Time) error {
		return p.MarkCancelled(now, "invoice voided by provider")
	})
}

// settleDeadInvoice marks the payment terminal and applies the retry policy
// to its reservation.
func (s *PaymentService) settleDeadInvoice(ctx context.Context, invoiceID, reason string, mark func(*payment.Payment, time.Time) error) error {
	pay, err := s.payments.FindByProviderInvoiceID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if pay.IsTerminal() {
		s.logger.Info("ignoring duplicate callback for settled invoice",
			zap.String("invoice_id", invoiceID),
			zap.String("payment_status", string(pay.Status())),
		)
		return nil
	}

	now := s.clock.Now()
	if err := mark(pay, now); err != nil {
		return err
	}
	pay.IncrementVersion()
	if err := s.payments.Update(ctx, pay); err != nil {
		return err
	}

	res, err := s.reservations.FindByID(ctx, pay.ReservationID())
	if err != nil {
		return err
	}
	if res.Status() != reservation.StatusPending {
		// Payment outcomes only steer pending reservations.
		return nil
	}

	if now.Sub(res.CreatedAt()) <= s.policy.RetryWindow {
		return s.reissueForRetry(ctx, res, pay, now)
	}
	return s.cancelUnpaid(ctx, res, reason)
}

// reissueForRetry opens a fresh invoice so the guest can try again. The
// reservation keeps holding its unit.
func (s *PaymentService) reissueForRetry(ctx context.Context, res *reservation.Reservation, old *payment.Payment, now time.Time) error {
	invoiceID, paymentURL, err := s.gateway.CreateInvoice(ctx, res.ReservationNumber(), res.TotalAmountCents(), old.Currency(), "Hotel reservation "+res.ReservationNumber())
	if err != nil {
		return err
	}

	replacement := payment.NewPayment(res.ID(), invoiceID, "invoice", res.TotalAmountCents(), old.Currency(), paymentURL, now.Add(s.invoiceTTL))
	if err := s.payments.Save(ctx, replacement); err != nil {
		return err
	}

	s.logger.Info("reissued invoice within retry window",
		zap.String("reservation_number", res.ReservationNumber()),
		zap.String("invoice_id", invoiceID),
	)
	return nil
}

// cancelUnpaid cancels a pending reservation whose payment died outside the
// retry window. Runs under the room's serialization point because a unit is
// released.
func (s *PaymentService) cancelUnpaid(ctx context.Context, res *reservation.Reservation, reason string) error {
	payload := `{"action":"cancel","reservation_number":"` + res.ReservationNumber() + `"}`

	err := s.serializer.Submit(ctx, res.GuestID(), res.RoomID(), payload, priorityRelease, func(ctx context.Context) error {
		return s.sagaSvc.ReleaseBooking(ctx, res, ledger.ActionCancel, ledger.SystemActor,
			"reservation "+res.ReservationNumber()+" cancelled: "+reason,
			func(r *reservation.Reservation, now time.Time) error {
				return r.Cancel(now, reason)
			})
	})
	if err != nil {
		if errors.Is(err, reservation.ErrAlreadyCancelled) {
			return nil
		}
		return err
	}

	s.publisher.Publish(ctx, events.EventReservationCancelled, res, s.clock.Now())

	s.logger.Info("reservation cancelled after payment failure",
		zap.String("reservation_number", res.ReservationNumber()),
		zap.String("reason", reason),
	)
	return nil
}
