package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusStats aggregates reservation counts and revenue per status.
type StatusStats struct {
	Count        int64
	RevenueCents int64
}

// StatsFilter narrows the aggregate query. Zero values mean "no filter".
type StatsFilter struct {
	RoomID   uuid.UUID
	FromDate time.Time
	ToDate   time.Time
}

// ReservationRepository defines the persistence contract for Reservation
// aggregates.
type ReservationRepository interface {
	// FindByID retrieves a reservation by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByNumber retrieves a reservation by its guest-facing number.
	FindByNumber(ctx context.Context, number string) (*Reservation, error)

	// ListByGuest retrieves a guest's reservations, newest first.
	ListByGuest(ctx context.Context, guestID uuid.UUID) ([]*Reservation, error)

	// ListArrivals retrieves confirmed reservations whose check-in date
	// equals the given day and which have not been checked in yet.
	ListArrivals(ctx context.Context, day time.Time) ([]*Reservation, error)

	// Stats returns counts and revenue grouped by status.
	Stats(ctx context.Context, filter StatsFilter) (map[Status]StatusStats, error)

	// Save persists a new reservation aggregate.
	Save(ctx context.Context, r *Reservation) error

	// Update persists changes to an existing reservation with optimistic
	// locking.
	Update(ctx context.Context, r *Reservation) error

	// Delete removes a reservation record. Used only as a saga
	// compensation for a record that never became visible; committed
	// reservations are never physically deleted.
	Delete(ctx context.Context, id uuid.UUID) error
}
