package promo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PromoRepository defines persistence operations for promo codes.
type PromoRepository interface {
	Save(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	FindActive(ctx context.Context, now time.Time) ([]*PromoCode, error)
	SaveUsage(ctx context.Context, usage *PromoUsage) error
	HasReservationUsage(ctx context.Context, promoID, reservationID uuid.UUID) (bool, error)
}

// PromoUsage records one confirmed application of a promo code to a
// reservation. At most one usage exists per (promo, reservation) pair, which
// is what makes the usage increment idempotent under duplicate callbacks.
type PromoUsage struct {
	ID            uuid.UUID
	PromoID       uuid.UUID
	GuestID       uuid.UUID
	ReservationID uuid.UUID
	DiscountCents int64
	UsedAt        time.Time
}
