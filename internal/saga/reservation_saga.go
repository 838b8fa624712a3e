package saga

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/belmonthotel/service-reservation/internal/adapter"
	"github.com/belmonthotel/service-reservation/internal/clock"
	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/belmonthotel/service-reservation/internal/domain/payment"
	"github.com/belmonthotel/service-reservation/internal/domain/promo"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/domain/room"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationSagaService owns the atomic units of work that pair an
// inventory mutation with reservation, payment, and ledger writes. Every
// method must run under the booking queue's per-room serialization point;
// nothing here takes its own room lock.
type ReservationSagaService struct {
	rooms        room.RoomRepository
	reservations reservation.ReservationRepository
	payments     payment.PaymentRepository
	promos       promo.PromoRepository
	entries      ledger.LedgerRepository
	gateway      adapter.InvoiceGateway
	clock        clock.Clock
	currency     string
	invoiceTTL   time.Duration
	logger       *zap.Logger
}

// NewReservationSagaService creates a new ReservationSagaService.
func NewReservationSagaService(
	rooms room.RoomRepository,
	reservations reservation.ReservationRepository,
	payments payment.PaymentRepository,
	promos promo.PromoRepository,
	entries ledger.LedgerRepository,
	gateway adapter.InvoiceGateway,
	clk clock.Clock,
	currency string,
	invoiceTTL time.Duration,
	logger *zap.Logger,
) *ReservationSagaService {
	return &ReservationSagaService{
		rooms:        rooms,
		reservations: reservations,
		payments:     payments,
		promos:       promos,
		entries:      entries,
		gateway:      gateway,
		clock:        clk,
		currency:     currency,
		invoiceTTL:   invoiceTTL,
		logger:       logger,
	}
}

// CreateBookingInput carries one validated booking request into the saga.
type CreateBookingInput struct {
	GuestID         uuid.UUID
	RoomID          uuid.UUID
	CheckIn         time.Time
	CheckOut        time.Time
	Adults          int
	Children        int
	PromoCode       string
	SpecialRequests string
}

// CreateBooking reserves one unit, persists the pending reservation, writes
// the reserve ledger entry, and opens the payment invoice. Any failure after
// the unit is taken compensates in reverse so no partial booking survives.
func (s *ReservationSagaService) CreateBooking(ctx context.Context, in CreateBookingInput) (*reservation.Reservation, *payment.Payment, error) {
	now := s.clock.Now()

	rm, err := s.rooms.FindByID(ctx, in.RoomID)
	if err != nil {
		return nil, nil, err
	}
	if err := rm.CanAccommodate(in.Adults, in.Children); err != nil {
		return nil, nil, err
	}

	res, err := reservation.NewReservation(in.GuestID, in.RoomID, in.CheckIn, in.CheckOut, in.Adults, in.Children, rm.NightlyRateCents(), in.SpecialRequests, now)
	if err != nil {
		return nil, nil, err
	}

	if code := strings.ToUpper(strings.TrimSpace(in.PromoCode)); code != "" {
		promoCode, err := s.promos.FindByCode(ctx, code)
		if err != nil {
			return nil, nil, domain.NewValidationError("unknown promo code")
		}
		discount, _, ok, reason := promoCode.Apply(now, res.TotalAmountCents())
		if !ok {
			return nil, nil, domain.NewValidationError("promo code rejected: " + reason)
		}
		res.ApplyDiscount(code, discount)
	}

	beforeUnits := rm.AvailableUnits()
	var pay *payment.Payment
	var invoiceID, paymentURL string

	sg := New("create_booking", s.logger)

	sg.AddStep(Step{
		Name: "reserve_inventory",
		Execute: func(ctx context.Context) error {
			if !rm.TryReserve() {
				return domain.NewUnavailableError("room not available")
			}
			return s.rooms.Update(ctx, rm)
		},
		Compensate: func(ctx context.Context) error {
			if err := rm.Release(); err != nil {
				return err
			}
			return s.rooms.Update(ctx, rm)
		},
	})

	sg.AddStep(Step{
		Name: "persist_reservation",
		Execute: func(ctx context.Context) error {
			return s.reservations.Save(ctx, res)
		},
		Compensate: func(ctx context.Context) error {
			// The record never became visible to the guest; remove it
			// rather than leaving a phantom cancelled booking.
			return s.reservations.Delete(ctx, res.ID())
		},
	})

	sg.AddStep(Step{
		Name: "append_reserve_entry",
		Execute: func(ctx context.Context) error {
			entry := ledger.NewEntry(
				ledger.ActionReserve,
				rm.ID(),
				res.ID(),
				ledger.Snapshot{AvailableUnits: beforeUnits},
				ledger.Snapshot{AvailableUnits: rm.AvailableUnits(), Status: string(res.Status())},
				-1,
				in.GuestID.String(),
				fmt.Sprintf("reservation %s created", res.ReservationNumber()),
				now,
			)
			return s.entries.Append(ctx, entry)
		},
		Compensate: func(ctx context.Context) error {
			// The ledger is append-only, so the undo is itself an entry.
			entry := ledger.NewEntry(
				ledger.ActionAdjustment,
				rm.ID(),
				res.ID(),
				ledger.Snapshot{AvailableUnits: rm.AvailableUnits()},
				ledger.Snapshot{AvailableUnits: beforeUnits},
				+1,
				ledger.SystemActor,
				"booking compensation: reserve rolled back",
				s.clock.Now(),
			)
			return s.entries.Append(ctx, entry)
		},
	})

	sg.AddStep(Step{
		Name: "create_invoice",
		Execute: func(ctx context.Context) error {
			var err error
			invoiceID, paymentURL, err = s.gateway.CreateInvoice(ctx, res.ReservationNumber(), res.TotalAmountCents(), s.currency, "Hotel reservation "+res.ReservationNumber())
			return err
		},
		Compensate: func(ctx context.Context) error {
			if invoiceID != "" {
				return s.gateway.ExpireInvoice(ctx, invoiceID)
			}
			return nil
		},
	})

	sg.AddStep(Step{
		Name: "persist_payment",
		Execute: func(ctx context.Context) error {
			pay = payment.NewPayment(res.ID(), invoiceID, "invoice", res.TotalAmountCents(), s.currency, paymentURL, now.Add(s.invoiceTTL))
			return s.payments.Save(ctx, pay)
		},
		Compensate: nil,
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, nil, err
	}

	return res, pay, nil
}

// ReleaseBooking moves a reservation into a terminal state and returns its
// unit to the pool in one compensable unit: release inventory, append the
// ledger entry, then flip the status via apply. Used by cancel, checkout,
// and no-show flows, which differ only in the ledger action, the delta
// bookkeeping, and the status transition.
func (s *ReservationSagaService) ReleaseBooking(ctx context.Context, res *reservation.Reservation, action ledger.Action, actor, note string, apply func(*reservation.Reservation, time.Time) error) error {
	now := s.clock.Now()

	rm, err := s.rooms.FindByID(ctx, res.RoomID())
	if err != nil {
		return err
	}

	beforeUnits := rm.AvailableUnits()
	beforeStatus := string(res.Status())

	sg := New("release_booking", s.logger)

	sg.AddStep(Step{
		Name: "release_inventory",
		Execute: func(ctx context.Context) error {
			if err := rm.Release(); err != nil {
				return err
			}
			return s.rooms.Update(ctx, rm)
		},
		Compensate: func(ctx context.Context) error {
			if !rm.TryReserve() {
				return domain.NewInvariantError("failed to re-reserve unit during compensation")
			}
			return s.rooms.Update(ctx, rm)
		},
	})

	sg.AddStep(Step{
		Name: "append_ledger_entry",
		Execute: func(ctx context.Context) error {
			entry := ledger.NewEntry(
				action,
				rm.ID(),
				res.ID(),
				ledger.Snapshot{AvailableUnits: beforeUnits, Status: beforeStatus},
				ledger.Snapshot{AvailableUnits: rm.AvailableUnits(), Status: string(action)},
				+1,
				actor,
				note,
				now,
			)
			return s.entries.Append(ctx, entry)
		},
		Compensate: func(ctx context.Context) error {
			entry := ledger.NewEntry(
				ledger.ActionAdjustment,
				rm.ID(),
				res.ID(),
				ledger.Snapshot{AvailableUnits: rm.AvailableUnits()},
				ledger.Snapshot{AvailableUnits: beforeUnits},
				-1,
				ledger.SystemActor,
				"release compensation: "+string(action)+" rolled back",
				s.clock.Now(),
			)
			return s.entries.Append(ctx, entry)
		},
	})

	sg.AddStep(Step{
		Name: "apply_status",
		Execute: func(ctx context.Context) error {
			if err := apply(res, now); err != nil {
				return err
			}
			res.IncrementVersion()
			return s.reservations.Update(ctx, res)
		},
		Compensate: nil,
	})

	return sg.Execute(ctx)
}

// ConfirmBooking flips a pending reservation to confirmed and appends the
// confirm ledger entry. No inventory changes hands (delta 0), but the two
// writes still form one compensable unit.
func (s *ReservationSagaService) ConfirmBooking(ctx context.Context, res *reservation.Reservation, actor string) error {
	now := s.clock.Now()

	rm, err := s.rooms.FindByID(ctx, res.RoomID())
	if err != nil {
		return err
	}

	beforeStatus := string(res.Status())
	priorStatus := res.Status()
	priorConfirmedAt := res.ConfirmedAt()
	priorUpdatedAt := res.UpdatedAt()

	sg := New("confirm_booking", s.logger)

	sg.AddStep(Step{
		Name: "confirm_reservation",
		Execute: func(ctx context.Context) error {
			if err := res.Confirm(now); err != nil {
				return err
			}
			res.IncrementVersion()
			return s.reservations.Update(ctx, res)
		},
		Compensate: func(ctx context.Context) error {
			// Persist the pre-confirm snapshot so a failed ledger append
			// cannot leave the record confirmed without its audit entry.
			prior := reservation.Reconstitute(
				res.ID(),
				res.ReservationNumber(),
				res.GuestID(), res.RoomID(),
				res.CheckInDate(), res.CheckOutDate(),
				res.Adults(), res.Children(),
				res.TotalAmountCents(), res.DiscountAmountCents(),
				res.PromoCode(),
				priorStatus,
				res.SpecialRequests(),
				res.CheckedInAt(), priorConfirmedAt, res.CancelledAt(),
				res.CancellationReason(),
				res.Version()+1,
				res.CreatedAt(), priorUpdatedAt,
			)
			return s.reservations.Update(ctx, prior)
		},
	})

	sg.AddStep(Step{
		Name: "append_confirm_entry",
		Execute: func(ctx context.Context) error {
			entry := ledger.NewEntry(
				ledger.ActionConfirm,
				rm.ID(),
				res.ID(),
				ledger.Snapshot{AvailableUnits: rm.AvailableUnits(), Status: beforeStatus},
				ledger.Snapshot{AvailableUnits: rm.AvailableUnits(), Status: string(reservation.StatusConfirmed)},
				0,
				actor,
				fmt.Sprintf("reservation %s confirmed", res.ReservationNumber()),
				now,
			)
			return s.entries.Append(ctx, entry)
		},
		Compensate: nil,
	})

	return sg.Execute(ctx)
}
