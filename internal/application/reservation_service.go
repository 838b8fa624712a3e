package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/belmonthotel/service-reservation/internal/adapter"
	"github.com/belmonthotel/service-reservation/internal/clock"
	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/belmonthotel/service-reservation/internal/domain/payment"
	"github.com/belmonthotel/service-reservation/internal/domain/promo"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/domain/room"
	"github.com/belmonthotel/service-reservation/internal/events"
	"github.com/belmonthotel/service-reservation/internal/queue"
	"github.com/belmonthotel/service-reservation/internal/saga"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue priorities. Releases outrank creates so a freed unit becomes
// available before the next create attempt on the same room is decided.
const (
	priorityCreate  = 0
	priorityRelease = 10
)

// EventPublisher emits reservation lifecycle events. Satisfied by
// events.Publisher; tests substitute a recorder.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, res *reservation.Reservation, occurredAt time.Time)
}

// Actor identifies the authenticated caller for authorization checks.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// CreateReservationRequest is the DTO for booking a room.
type CreateReservationRequest struct {
	RoomID          uuid.UUID `json:"room_id" binding:"required"`
	CheckInDate     time.Time `json:"check_in_date" binding:"required"`
	CheckOutDate    time.Time `json:"check_out_date" binding:"required"`
	Adults          int       `json:"adults" binding:"required,gt=0"`
	Children        int       `json:"children" binding:"gte=0"`
	PromoCode       string    `json:"promo_code"`
	SpecialRequests string    `json:"special_requests"`
}

// UpdateReservationRequest is the DTO for modifying a pending reservation.
type UpdateReservationRequest struct {
	CheckInDate  time.Time `json:"check_in_date" binding:"required"`
	CheckOutDate time.Time `json:"check_out_date" binding:"required"`
	Adults       int       `json:"adults" binding:"required,gt=0"`
	Children     int       `json:"children" binding:"gte=0"`
	PromoCode    string    `json:"promo_code"`
}

// PaymentDTO is the API response DTO for payment data.
type PaymentDTO struct {
	ID                uuid.UUID  `json:"id"`
	ReservationID     uuid.UUID  `json:"reservation_id"`
	ProviderInvoiceID string     `json:"provider_invoice_id"`
	Status            string     `json:"status"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	PaymentURL        string     `json:"payment_url,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ReservationDTO is the API response DTO for reservation data.
type ReservationDTO struct {
	ID                  uuid.UUID   `json:"id"`
	ReservationNumber   string      `json:"reservation_number"`
	GuestID             uuid.UUID   `json:"guest_id"`
	RoomID              uuid.UUID   `json:"room_id"`
	CheckInDate         time.Time   `json:"check_in_date"`
	CheckOutDate        time.Time   `json:"check_out_date"`
	Nights              int         `json:"nights"`
	Adults              int         `json:"adults"`
	Children            int         `json:"children"`
	TotalAmountCents    int64       `json:"total_amount_cents"`
	DiscountAmountCents int64       `json:"discount_amount_cents"`
	PromoCode           string      `json:"promo_code,omitempty"`
	Status              string      `json:"status"`
	SpecialRequests     string      `json:"special_requests,omitempty"`
	CheckedInAt         *time.Time  `json:"checked_in_at,omitempty"`
	ConfirmedAt         *time.Time  `json:"confirmed_at,omitempty"`
	CancelledAt         *time.Time  `json:"cancelled_at,omitempty"`
	CancellationReason  string      `json:"cancellation_reason,omitempty"`
	Note                string      `json:"note,omitempty"`
	Payment             *PaymentDTO `json:"payment,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// queuePayload is persisted with each queue entry for audit.
type queuePayload struct {
	Action            string `json:"action"`
	ReservationNumber string `json:"reservation_number,omitempty"`
	CheckInDate       string `json:"check_in_date,omitempty"`
	CheckOutDate      string `json:"check_out_date,omitempty"`
}

// ReservationService orchestrates the reservation lifecycle. Every operation
// that moves inventory goes through the per-room serializer; everything else
// hits repositories directly.
type ReservationService struct {
	reservations reservation.ReservationRepository
	rooms        room.RoomRepository
	payments     payment.PaymentRepository
	promos       promo.PromoRepository
	sagaSvc      *saga.ReservationSagaService
	serializer   *queue.Serializer
	gateway      adapter.InvoiceGateway
	publisher    EventPublisher
	clock        clock.Clock
	invoiceTTL   time.Duration
	logger       *zap.Logger
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	reservations reservation.ReservationRepository,
	rooms room.RoomRepository,
	payments payment.PaymentRepository,
	promos promo.PromoRepository,
	sagaSvc *saga.ReservationSagaService,
	serializer *queue.Serializer,
	gateway adapter.InvoiceGateway,
	publisher EventPublisher,
	clk clock.Clock,
	invoiceTTL time.Duration,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		payments:     payments,
		promos:       promos,
		sagaSvc:      sagaSvc,
		serializer:   serializer,
		gateway:      gateway,
		publisher:    publisher,
		clock:        clk,
		invoiceTTL:   invoiceTTL,
		logger:       logger,
	}
}

// CreateReservation books a room for the guest. The booking runs under the
// room's serialization point so concurrent requests for the last unit are
// decided one at a time.
func (s *ReservationService) CreateReservation(ctx context.Context, guestID uuid.UUID, req CreateReservationRequest) (*ReservationDTO, error) {
	s.logger.Info("creating reservation",
		zap.String("guest_id", guestID.String()),
		zap.String("room_id", req.RoomID.String()),
	)

	payload := marshalPayload(queuePayload{
		Action:       "create",
		CheckInDate:  req.CheckInDate.Format("2006-01-02"),
		CheckOutDate: req.CheckOutDate.Format("2006-01-02"),
	})

	var res *reservation.Reservation
	var pay *payment.Payment

	err := s.serializer.Submit(ctx, guestID, req.RoomID, payload, priorityCreate, func(ctx context.Context) error {
		var err error
		res, pay, err = s.sagaSvc.CreateBooking(ctx, saga.CreateBookingInput{
			GuestID:         guestID,
			RoomID:          req.RoomID,
			CheckIn:         req.CheckInDate,
			CheckOut:        req.CheckOutDate,
			Adults:          req.Adults,
			Children:        req.Children,
			PromoCode:       req.PromoCode,
			SpecialRequests: req.SpecialRequests,
		})
		return err
	})
	if err != nil {
		s.logger.Warn("reservation rejected", zap.Error(err))
		return nil, err
	}

	s.publisher.Publish(ctx, events.EventReservationCreated, res, s.clock.Now())

	dto := toReservationDTO(res)
	paymentDTO := toPaymentDTO(pay)
	dto.Payment = &paymentDTO
	return &dto, nil
}

// GetReservation returns one reservation. Guests can only read their own.
func (s *ReservationService) GetReservation(ctx context.Context, actor Actor, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.authorizedReservation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.withPayment(ctx, res), nil
}

// GetReservationByNumber returns one reservation by its guest-facing number.
func (s *ReservationService) GetReservationByNumber(ctx context.Context, actor Actor, number string) (*ReservationDTO, error) {
	res, err := s.reservations.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && res.GuestID() != actor.ID {
		return nil, domain.NewUnauthorizedError("reservation belongs to another guest")
	}
	return s.withPayment(ctx, res), nil
}

// ListMyReservations returns the guest's reservations, newest first.
func (s *ReservationService) ListMyReservations(ctx context.Context, guestID uuid.UUID) ([]ReservationDTO, error) {
	list, err := s.reservations.ListByGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}
	dtos := make([]ReservationDTO, 0, len(list))
	for _, res := range list {
		dtos = append(dtos, toReservationDTO(res))
	}
	return dtos, nil
}

// CancelReservation cancels a pending or confirmed reservation, releasing its
// inventory unit and voiding any open invoice. Cancelling an already
// cancelled reservation is reported as success with a note.
func (s *ReservationService) CancelReservation(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*ReservationDTO, error) {
	res, err := s.authorizedReservation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if res.Status() == reservation.StatusCancelled {
		dto := toReservationDTO(res)
		dto.Note = "reservation was already cancelled"
		return &dto, nil
	}

	actorName := actor.ID.String()
	payload := marshalPayload(queuePayload{Action: "cancel", ReservationNumber: res.ReservationNumber()})

	err = s.serializer.Submit(ctx, res.GuestID(), res.RoomID(), payload, priorityRelease, func(ctx context.Context) error {
		return s.sagaSvc.ReleaseBooking(ctx, res, ledger.ActionCancel, actorName,
			"reservation "+res.ReservationNumber()+" cancelled",
			func(r *reservation.Reservation, now time.Time) error {
				return r.Cancel(now, reason)
			})
	})
	if err != nil {
		if errors.Is(err, reservation.ErrAlreadyCancelled) {
			dto := toReservationDTO(res)
			dto.Note = "reservation was already cancelled"
			return &dto, nil
		}
		// A version conflict means another writer got there first. When that
		// writer was a concurrent cancellation, report the same
		// success-with-note outcome a fresh read would have produced.
		if errors.Is(err, domain.ErrConflict) {
			fresh, readErr := s.reservations.FindByID(ctx, id)
			if readErr == nil && fresh.Status() == reservation.StatusCancelled {
				dto := toReservationDTO(fresh)
				dto.Note = "reservation was already cancelled"
				return &dto, nil
			}
		}
		return nil, err
	}

	s.voidOpenPayment(ctx, res.ID())
	s.publisher.Publish(ctx, events.EventReservationCancelled, res, s.clock.Now())

	s.logger.Info("reservation cancelled",
		zap.String("reservation_number", res.ReservationNumber()),
		zap.String("reason", reason),
	)

	dto := toReservationDTO(res)
	return &dto, nil
}

// UpdateReservation modifies the dates and party size of a pending
// reservation. The room is unchanged so no inventory moves, but the open
// invoice is replaced when the total changes.
func (s *ReservationService) UpdateReservation(ctx context.Context, actor Actor, id uuid.UUID, req UpdateReservationRequest) (*ReservationDTO, error) {
	res, err := s.authorizedReservation(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	rm, err := s.rooms.FindByID(ctx, res.RoomID())
	if err != nil {
		return nil, err
	}
	if err := rm.CanAccommodate(req.Adults, req.Children); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	previousTotal := res.TotalAmountCents()

	if err := res.Modify(req.CheckInDate, req.CheckOutDate, req.Adults, req.Children, rm.NightlyRateCents(), now); err != nil {
		return nil, err
	}

	if req.PromoCode != "" {
		promoCode, err := s.promos.FindByCode(ctx, req.PromoCode)
		if err != nil {
			return nil, domain.NewValidationError("unknown promo code")
		}
		discount, _, ok, failReason := promoCode.Apply(now, res.TotalAmountCents())
		if !ok {
			return nil, domain.NewValidationError("promo code rejected: " + failReason)
		}
		res.ApplyDiscount(promoCode.Code(), discount)
	}

	res.IncrementVersion()
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	if res.TotalAmountCents() != previousTotal {
		if err := s.reissueInvoice(ctx, res, now); err != nil {
			return nil, err
		}
	}

	return s.withPayment(ctx, res), nil
}

// Checkout completes a confirmed stay and returns the unit to the pool.
func (s *ReservationService) Checkout(ctx context.Context, actor Actor, id uuid.UUID) (*ReservationDTO, error) {
	return s.closeOut(ctx, actor, id, ledger.ActionCheckout, events.EventReservationCompleted, "checked out",
		func(r *reservation.Reservation, now time.Time) error { return r.Complete(now) })
}

// MarkNoShow flags a confirmed reservation whose guest never arrived and
// returns the unit to the pool.
func (s *ReservationService) MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*ReservationDTO, error) {
	return s.closeOut(ctx, actor, id, ledger.ActionNoShow, events.EventReservationNoShow, "marked no-show",
		func(r *reservation.Reservation, now time.Time) error { return r.MarkNoShow(now) })
}

func (s *ReservationService) closeOut(ctx context.Context, actor Actor, id uuid.UUID, action ledger.Action, eventType, verb string, apply func(*reservation.Reservation, time.Time) error) (*ReservationDTO, error) {
	if !actor.Admin {
		return nil, domain.NewUnauthorizedError("staff access required")
	}

	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := marshalPayload(queuePayload{Action: string(action), ReservationNumber: res.ReservationNumber()})

	err = s.serializer.Submit(ctx, res.GuestID(), res.RoomID(), payload, priorityRelease, func(ctx context.Context) error {
		return s.sagaSvc.ReleaseBooking(ctx, res, action, actor.ID.String(),
			"reservation "+res.ReservationNumber()+" "+verb, apply)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, eventType, res, s.clock.Now())

	dto := toReservationDTO(res)
	return &dto, nil
}

// TodayArrivals lists confirmed reservations checking in today that have not
// been checked in yet.
func (s *ReservationService) TodayArrivals(ctx context.Context) ([]ReservationDTO, error) {
	list, err := s.reservations.ListArrivals(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	dtos := make([]ReservationDTO, 0, len(list))
	for _, res := range list {
		dtos = append(dtos, toReservationDTO(res))
	}
	return dtos, nil
}

// ProcessDueCheckIns stamps the check-in marker on every reservation arriving
// today. Reservations already stamped are excluded by the arrivals query, so
// running this repeatedly in one day is a no-op after the first pass.
func (s *ReservationService) ProcessDueCheckIns(ctx context.Context) (int, error) {
	now := s.clock.Now()
	list, err := s.reservations.ListArrivals(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, res := range list {
		if err := res.MarkCheckedIn(now); err != nil {
			s.logger.Warn("skipping check-in",
				zap.String("reservation_number", res.ReservationNumber()),
				zap.Error(err),
			)
			continue
		}
		res.IncrementVersion()
		if err := s.reservations.Update(ctx, res); err != nil {
			s.logger.Error("failed to persist check-in",
				zap.String("reservation_number", res.ReservationNumber()),
				zap.Error(err),
			)
			continue
		}
		processed++
	}

	s.logger.Info("processed due check-ins", zap.Int("count", processed))
	return processed, nil
}

// GetReservationStats returns per-status counts and revenue over a window.
func (s *ReservationService) GetReservationStats(ctx context.Context, filter reservation.StatsFilter) (map[reservation.Status]reservation.StatusStats, error) {
	return s.reservations.Stats(ctx, filter)
}

func (s *ReservationService) authorizedReservation(ctx context.Context, actor Actor, id uuid.UUID) (*reservation.Reservation, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && res.GuestID() != actor.ID {
		return nil, domain.NewUnauthorizedError("reservation belongs to another guest")
	}
	return res, nil
}

// voidOpenPayment marks any pending payment cancelled and expires its
// invoice. Best effort; the reservation is already cancelled either way.
func (s *ReservationService) voidOpenPayment(ctx context.Context, reservationID uuid.UUID) {
	pay, err := s.payments.FindPendingByReservationID(ctx, reservationID)
	if err != nil {
		return
	}
	if err := pay.MarkCancelled(s.clock.Now(), "reservation cancelled"); err != nil {
		return
	}
	pay.IncrementVersion()
	if err := s.payments.Update(ctx, pay); err != nil {
		s.logger.Warn("failed to cancel payment", zap.Error(err))
		return
	}
	if err := s.gateway.ExpireInvoice(ctx, pay.ProviderInvoiceID()); err != nil {
		s.logger.Warn("failed to expire provider invoice",
			zap.String("invoice_id", pay.ProviderInvoiceID()),
			zap.Error(err),
		)
	}
}

// reissueInvoice replaces the open invoice after the reservation total
// changed.
func (s *ReservationService) reissueInvoice(ctx context.Context, res *reservation.Reservation, now time.Time) error {
	old, err := s.payments.FindPendingByReservationID(ctx, res.ID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := old.MarkCancelled(now, "superseded by modified reservation"); err != nil {
		return err
	}
	old.IncrementVersion()
	if err := s.payments.Update(ctx, old); err != nil {
		return err
	}
	if err := s.gateway.ExpireInvoice(ctx, old.ProviderInvoiceID()); err != nil {
		s.logger.Warn("failed to expire provider invoice",
			zap.String("invoice_id", old.ProviderInvoiceID()),
			zap.Error(err),
		)
	}

	invoiceID, paymentURL, err := s.gateway.CreateInvoice(ctx, res.ReservationNumber(), res.TotalAmountCents(), old.Currency(), "Hotel reservation "+res.ReservationNumber())
	if err != nil {
		return err
	}

	expiresAt := now.Add(s.invoiceTTL)
	replacement := payment.NewPayment(res.ID(), invoiceID, "invoice", res.TotalAmountCents(), old.Currency(), paymentURL, expiresAt)
	return s.payments.Save(ctx, replacement)
}

func (s *ReservationService) withPayment(ctx context.Context, res *reservation.Reservation) *ReservationDTO {
	dto := toReservationDTO(res)
	if pay, err := s.payments.FindPendingByReservationID(ctx, res.ID()); err == nil {
		paymentDTO := toPaymentDTO(pay)
		dto.Payment = &paymentDTO
	}
	return &dto
}

func marshalPayload(p queuePayload) string {
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(raw)
}

func toReservationDTO(res *reservation.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:                  res.ID(),
		ReservationNumber:   res.ReservationNumber(),
		GuestID:             res.GuestID(),
		RoomID:              res.RoomID(),
		CheckInDate:         res.CheckInDate(),
		CheckOutDate:        res.CheckOutDate(),
		Nights:              res.NightCount(),
		Adults:              res.Adults(),
		Children:            res.Children(),
		TotalAmountCents:    res.TotalAmountCents(),
		DiscountAmountCents: res.DiscountAmountCents(),
		PromoCode:           res.PromoCode(),
		Status:              string(res.Status()),
		SpecialRequests:     res.SpecialRequests(),
		CheckedInAt:         res.CheckedInAt(),
		ConfirmedAt:         res.ConfirmedAt(),
		CancelledAt:         res.CancelledAt(),
		CancellationReason:  res.CancellationReason(),
		CreatedAt:           res.CreatedAt(),
		UpdatedAt:           res.UpdatedAt(),
	}
}

func toPaymentDTO(p *payment.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                p.ID(),
		ReservationID:     p.ReservationID(),
		ProviderInvoiceID: p.ProviderInvoiceID(),
		Status:            string(p.Status()),
		AmountCents:       p.AmountCents(),
		Currency:          p.Currency(),
		PaymentURL:        p.PaymentURL(),
		PaidAt:            p.PaidAt(),
		ExpiresAt:         p.ExpiresAt(),
		FailureReason:     p.FailureReason(),
		CreatedAt:         p.CreatedAt(),
	}
}
