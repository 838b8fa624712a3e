package application

import (
	"context"
	"errors"
	"time"

	"github.com/belmonthotel/service-reservation/internal/clock"
	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/promo"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreatePromoRequest is the DTO for registering a promo code.
type CreatePromoRequest struct {
	Code               string    `json:"code" binding:"required"`
	Description        string    `json:"description"`
	DiscountType       string    `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue      int64     `json:"discount_value" binding:"required,gt=0"`
	MinimumAmountCents int64     `json:"minimum_amount_cents" binding:"gte=0"`
	MaxUses            int       `json:"max_uses" binding:"gte=0"`
	StartsAt           time.Time `json:"starts_at" binding:"required"`
	ExpiresAt          time.Time `json:"expires_at" binding:"required"`
}

// ValidatePromoRequest is the DTO for a validation check.
type ValidatePromoRequest struct {
	Code        string `json:"code" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
}

// PromoValidationResult reports the outcome of a validation check. Invalid
// codes are a business outcome, not an error.
type PromoValidationResult struct {
	Valid            bool   `json:"valid"`
	Reason           string `json:"reason,omitempty"`
	DiscountCents    int64  `json:"discount_cents"`
	FinalAmountCents int64  `json:"final_amount_cents"`
}

// PromoDTO is the API response DTO for promo code data.
type PromoDTO struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Description        string    `json:"description,omitempty"`
	DiscountType       string    `json:"discount_type"`
	DiscountValue      int64     `json:"discount_value"`
	MinimumAmountCents int64     `json:"minimum_amount_cents"`
	MaxUses            int       `json:"max_uses"`
	UsedCount          int       `json:"used_count"`
	StartsAt           time.Time `json:"starts_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
}

// PromoService is the application service for promo code use cases.
type PromoService struct {
	promos promo.PromoRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewPromoService creates a new PromoService.
func NewPromoService(promos promo.PromoRepository, clk clock.Clock, logger *zap.Logger) *PromoService {
	return &PromoService{promos: promos, clock: clk, logger: logger}
}

// CreatePromo registers a new promo code. Staff only.
func (s *PromoService) CreatePromo(ctx context.Context, actor Actor, req CreatePromoRequest) (*PromoDTO, error) {
	if !actor.Admin {
		return nil, domain.NewUnauthorizedError("staff access required")
	}

	p, err := promo.NewPromoCode(req.Code, req.Description, promo.DiscountType(req.DiscountType), req.DiscountValue, req.MinimumAmountCents, req.MaxUses, req.StartsAt, req.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.promos.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("promo code created",
		zap.String("code", p.Code()),
		zap.String("discount_type", string(p.DiscountType())),
	)

	dto := toPromoDTO(p)
	return &dto, nil
}

// ValidatePromo checks a code against an amount without consuming a use. A
// code that does not exist or does not qualify yields an invalid result with
// a reason, never an error.
func (s *PromoService) ValidatePromo(ctx context.Context, req ValidatePromoRequest) (*PromoValidationResult, error) {
	p, err := s.promos.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &PromoValidationResult{Valid: false, Reason: "promo code not found", FinalAmountCents: req.AmountCents}, nil
		}
		return nil, err
	}

	discount, final, ok, reason := p.Apply(s.clock.Now(), req.AmountCents)
	return &PromoValidationResult{
		Valid:            ok,
		Reason:           reason,
		DiscountCents:    discount,
		FinalAmountCents: final,
	}, nil
}

// ListActivePromos returns promo codes currently usable.
func (s *PromoService) ListActivePromos(ctx context.Context) ([]PromoDTO, error) {
	list, err := s.promos.FindActive(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	dtos := make([]PromoDTO, 0, len(list))
	for _, p := range list {
		dtos = append(dtos, toPromoDTO(p))
	}
	return dtos, nil
}

// DeactivatePromo retires a code. Staff only.
func (s *PromoService) DeactivatePromo(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.Admin {
		return domain.NewUnauthorizedError("staff access required")
	}
	p, err := s.promos.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.Deactivate()
	return s.promos.Update(ctx, p)
}

// RecordConfirmedUsage consumes one use of the reservation's promo code at
// confirmation time. A usage row already existing for this reservation means
// a duplicate callback; the increment is skipped so each reservation counts
// at most once.
func (s *PromoService) RecordConfirmedUsage(ctx context.Context, res *reservation.Reservation) error {
	if res.PromoCode() == "" {
		return nil
	}

	p, err := s.promos.FindByCode(ctx, res.PromoCode())
	if err != nil {
		return err
	}

	used, err := s.promos.HasReservationUsage(ctx, p.ID(), res.ID())
	if err != nil {
		return err
	}
	if used {
		return nil
	}

	if err := p.IncrementUsage(); err != nil {
		return err
	}
	if err := s.promos.Update(ctx, p); err != nil {
		return err
	}

	return s.promos.SaveUsage(ctx, &promo.PromoUsage{
		ID:            uuid.New(),
		PromoID:       p.ID(),
		GuestID:       res.GuestID(),
		ReservationID: res.ID(),
		DiscountCents: res.DiscountAmountCents(),
		UsedAt:        s.clock.Now().UTC(),
	})
}

func toPromoDTO(p *promo.PromoCode) PromoDTO {
	return PromoDTO{
		ID:                 p.ID(),
		Code:               p.Code(),
		Description:        p.Description(),
		DiscountType:       string(p.DiscountType()),
		DiscountValue:      p.DiscountValue(),
		MinimumAmountCents: p.MinimumAmountCents(),
		MaxUses:            p.MaxUses(),
		UsedCount:          p.UsedCount(),
		StartsAt:           p.StartsAt(),
		ExpiresAt:          p.ExpiresAt(),
		Active:             p.IsActive(),
		CreatedAt:          p.CreatedAt(),
	}
}
