package reservation

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// Status enumerates the reservation lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// transitions is the closed transition table. Any move not listed here is
// rejected; cancelled, completed and no_show have no outgoing edges.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
}

// CanTransition reports whether the move from one status to another is legal.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// Idempotent re-invocation outcomes. These are success-with-note signals,
// not faults: the caller reports them but the record is already where the
// caller wanted it.
var (
	ErrAlreadyConfirmed = domain.NewConflictError("reservation already confirmed")
	ErrAlreadyCancelled = domain.NewConflictError("reservation already cancelled")
)

// Reservation is the aggregate root for one guest's claim on one room unit
// over a date range. Exactly one inventory unit is held while the status is
// pending or confirmed; the unit is released when the reservation reaches
// any terminal state.
type Reservation struct {
	id                  uuid.UUID
	reservationNumber   string
	guestID             uuid.UUID
	roomID              uuid.UUID
	checkInDate         time.Time
	checkOutDate        time.Time
	adults              int
	children            int
	totalAmountCents    int64
	discountAmountCents int64
	promoCode           string
	status              Status
	specialRequests     string
	checkedInAt         *time.Time
	confirmedAt         *time.Time
	cancelledAt         *time.Time
	cancellationReason  string
	version             int64
	createdAt           time.Time
	updatedAt           time.Time
}

// NewReservation validates dates against "now", computes the total from the
// nightly rate, and returns a pending reservation. It does not touch
// inventory; the caller reserves a unit before persisting.
func NewReservation(guestID, roomID uuid.UUID, checkIn, checkOut time.Time, adults, children int, nightlyRateCents int64, specialRequests string, now time.Time) (*Reservation, error) {
	checkIn = truncateToDay(checkIn)
	checkOut = truncateToDay(checkOut)
	today := truncateToDay(now)

	if checkIn.Before(today) {
		return nil, domain.NewValidationError("check-in date cannot be in the past")
	}
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check-out date must be after check-in date")
	}

	nights := Nights(checkIn, checkOut)

	return &Reservation{
		id:                uuid.New(),
		reservationNumber: newReservationNumber(now),
		guestID:           guestID,
		roomID:            roomID,
		checkInDate:       checkIn,
		checkOutDate:      checkOut,
		adults:            adults,
		children:          children,
		totalAmountCents:  nightlyRateCents * int64(nights),
		status:            StatusPending,
		specialRequests:   specialRequests,
		version:           1,
		createdAt:         now.UTC(),
		updatedAt:         now.UTC(),
	}, nil
}

// Reconstitute rebuilds a Reservation from persisted data.
func Reconstitute(
	id uuid.UUID,
	reservationNumber string,
	guestID, roomID uuid.UUID,
	checkIn, checkOut time.Time,
	adults, children int,
	totalAmountCents, discountAmountCents int64,
	promoCode string,
	status Status,
	specialRequests string,
	checkedInAt, confirmedAt, cancelledAt *time.Time,
	cancellationReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:                  id,
		reservationNumber:   reservationNumber,
		guestID:             guestID,
		roomID:              roomID,
		checkInDate:         checkIn,
		checkOutDate:        checkOut,
		adults:              adults,
		children:            children,
		totalAmountCents:    totalAmountCents,
		discountAmountCents: discountAmountCents,
		promoCode:           promoCode,
		status:              status,
		specialRequests:     specialRequests,
		checkedInAt:         checkedInAt,
		confirmedAt:         confirmedAt,
		cancelledAt:         cancelledAt,
		cancellationReason:  cancellationReason,
		version:             version,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

func (r *Reservation) ID() uuid.UUID               { return r.id }
func (r *Reservation) ReservationNumber() string   { return r.reservationNumber }
func (r *Reservation) GuestID() uuid.UUID          { return r.guestID }
func (r *Reservation) RoomID() uuid.UUID           { return r.roomID }
func (r *Reservation) CheckInDate() time.Time      { return r.checkInDate }
func (r *Reservation) CheckOutDate() time.Time     { return r.checkOutDate }
func (r *Reservation) Adults() int                 { return r.adults }
func (r *Reservation) Children() int               { return r.children }
func (r *Reservation) TotalAmountCents() int64     { return r.totalAmountCents }
func (r *Reservation) DiscountAmountCents() int64  { return r.discountAmountCents }
func (r *Reservation) PromoCode() string           { return r.promoCode }
func (r *Reservation) Status() Status              { return r.status }
func (r *Reservation) SpecialRequests() string     { return r.specialRequests }
func (r *Reservation) CheckedInAt() *time.Time     { return r.checkedInAt }
func (r *Reservation) ConfirmedAt() *time.Time     { return r.confirmedAt }
func (r *Reservation) CancelledAt() *time.Time     { return r.cancelledAt }
func (r *Reservation) CancellationReason() string  { return r.cancellationReason }
func (r *Reservation) Version() int64              { return r.version }
func (r *Reservation) CreatedAt() time.Time        { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time        { return r.updatedAt }

// NightCount returns the number of nights booked.
func (r *Reservation) NightCount() int {
	return Nights(r.checkInDate, r.checkOutDate)
}

// HoldsInventory reports whether this reservation currently accounts for one
// room unit.
func (r *Reservation) HoldsInventory() bool {
	return r.status == StatusPending || r.status == StatusConfirmed
}

// ApplyDiscount records a promo discount, clamping the total at zero.
func (r *Reservation) ApplyDiscount(code string, discountCents int64) {
	if discountCents > r.totalAmountCents {
		discountCents = r.totalAmountCents
	}
	r.promoCode = code
	r.discountAmountCents = discountCents
	r.totalAmountCents -= discountCents
	r.updatedAt = time.Now().UTC()
}

// Confirm transitions pending -> confirmed. Re-invoking on an already
// confirmed reservation returns ErrAlreadyConfirmed so the caller can treat
// it as a no-op.
func (r *Reservation) Confirm(now time.Time) error {
	if r.status == StatusConfirmed {
		return ErrAlreadyConfirmed
	}
	if !CanTransition(r.status, StatusConfirmed) {
		return domain.NewInvalidStateError(string(r.status), string(StatusConfirmed))
	}
	ts := now.UTC()
	r.status = StatusConfirmed
	r.confirmedAt = &ts
	r.updatedAt = ts
	return nil
}

// Cancel transitions pending/confirmed -> cancelled. A second cancellation
// returns ErrAlreadyCancelled; the caller reports it as "already cancelled"
// without touching inventory again.
func (r *Reservation) Cancel(now time.Time, reason string) error {
	if r.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !CanTransition(r.status, StatusCancelled) {
		return domain.NewInvalidStateError(string(r.status), string(StatusCancelled))
	}
	ts := now.UTC()
	r.status = StatusCancelled
	r.cancelledAt = &ts
	r.cancellationReason = reason
	r.updatedAt = ts
	return nil
}

// Complete transitions confirmed -> completed at checkout.
func (r *Reservation) Complete(now time.Time) error {
	if !CanTransition(r.status, StatusCompleted) {
		return domain.NewInvalidStateError(string(r.status), string(StatusCompleted))
	}
	r.status = StatusCompleted
	r.updatedAt = now.UTC()
	return nil
}

// MarkNoShow transitions confirmed -> no_show.
func (r *Reservation) MarkNoShow(now time.Time) error {
	if !CanTransition(r.status, StatusNoShow) {
		return domain.NewInvalidStateError(string(r.status), string(StatusNoShow))
	}
	r.status = StatusNoShow
	r.updatedAt = now.UTC()
	return nil
}

// MarkCheckedIn stamps the bookkeeping check-in time. The external check-in
// workflow starts from this marker; the status stays confirmed.
func (r *Reservation) MarkCheckedIn(now time.Time) error {
	if r.status != StatusConfirmed {
		return domain.NewInvalidStateError(string(r.status), "checked_in")
	}
	if r.checkedInAt != nil {
		return nil
	}
	ts := now.UTC()
	r.checkedInAt = &ts
	r.updatedAt = ts
	return nil
}

// Modify changes dates and party size on a pending reservation and recomputes
// the total from the nightly rate. The room does not change, so the held
// inventory unit is untouched. Any earlier discount is discarded; the caller
// re-applies the promo against the new total.
func (r *Reservation) Modify(checkIn, checkOut time.Time, adults, children int, nightlyRateCents int64, now time.Time) error {
	if r.status != StatusPending {
		return domain.NewValidationError("only pending reservations can be modified")
	}

	checkIn = truncateToDay(checkIn)
	checkOut = truncateToDay(checkOut)
	today := truncateToDay(now)

	if checkIn.Before(today) {
		return domain.NewValidationError("check-in date cannot be in the past")
	}
	if !checkOut.After(checkIn) {
		return domain.NewValidationError("check-out date must be after check-in date")
	}

	r.checkInDate = checkIn
	r.checkOutDate = checkOut
	r.adults = adults
	r.children = children
	r.totalAmountCents = nightlyRateCents * int64(Nights(checkIn, checkOut))
	r.discountAmountCents = 0
	r.promoCode = ""
	r.updatedAt = now.UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}

// Nights counts whole nights between two check dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(truncateToDay(checkOut).Sub(truncateToDay(checkIn)).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// newReservationNumber builds the guest-facing booking reference, e.g.
// BEL202601024217.
func newReservationNumber(now time.Time) string {
	return fmt.Sprintf("BEL%s%04d", now.UTC().Format("20060102"), rand.IntN(10000))
}
