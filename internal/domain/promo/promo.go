package promo

import (
	"strings"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// DiscountType represents the type of discount.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// PromoCode is the aggregate root for promotional codes. Validation is
// side-effect free; usedCount is incremented only when a code is applied to
// a reservation that reaches confirmation.
type PromoCode struct {
	id                 uuid.UUID
	code               string
	description        string
	discountType       DiscountType
	discountValue      int64 // percentage (1-100) or fixed amount in cents
	minimumAmountCents int64
	maxUses            int // 0 means uncapped
	usedCount          int
	startsAt           time.Time
	expiresAt          time.Time
	active             bool
	createdAt          time.Time
	updatedAt          time.Time
}

// NewPromoCode creates a new promo code. Codes are case-normalized to upper.
func NewPromoCode(code, description string, discountType DiscountType, discountValue, minimumAmountCents int64, maxUses int, startsAt, expiresAt time.Time) (*PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("promo code is required")
	}
	if discountType != DiscountTypePercentage && discountType != DiscountTypeFixed {
		return nil, domain.NewValidationError("invalid discount type: " + string(discountType))
	}
	if discountValue <= 0 {
		return nil, domain.NewValidationError("discount value must be positive")
	}
	if discountType == DiscountTypePercentage && discountValue > 100 {
		return nil, domain.NewValidationError("percentage discount cannot exceed 100")
	}
	if expiresAt.Before(startsAt) {
		return nil, domain.NewValidationError("expires_at must be after starts_at")
	}

	now := time.Now().UTC()
	return &PromoCode{
		id:                 uuid.New(),
		code:               code,
		description:        description,
		discountType:       discountType,
		discountValue:      discountValue,
		minimumAmountCents: minimumAmountCents,
		maxUses:            maxUses,
		usedCount:          0,
		startsAt:           startsAt.UTC(),
		expiresAt:          expiresAt.UTC(),
		active:             true,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// Reconstruct rebuilds a PromoCode from persistence.
func Reconstruct(id uuid.UUID, code, description string, discountType DiscountType, discountValue, minimumAmountCents int64, maxUses, usedCount int, startsAt, expiresAt time.Time, active bool, createdAt, updatedAt time.Time) *PromoCode {
	return &PromoCode{
		id: id, code: code, description: description,
		discountType: discountType, discountValue: discountValue,
		minimumAmountCents: minimumAmountCents,
		maxUses:            maxUses, usedCount: usedCount,
		startsAt: startsAt, expiresAt: expiresAt, active: active,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ValidateAt checks the code against the clock and a qualifying amount.
// An invalid code is a business outcome, reported as (false, reason), never
// an error.
func (p *PromoCode) ValidateAt(now time.Time, amountCents int64) (bool, string) {
	if !p.active {
		return false, "promo code is inactive"
	}
	if now.Before(p.startsAt) {
		return false, "promo code is not yet valid"
	}
	if now.After(p.expiresAt) {
		return false, "promo code has expired"
	}
	if p.maxUses > 0 && p.usedCount >= p.maxUses {
		return false, "promo code has reached its usage limit"
	}
	if amountCents < p.minimumAmountCents {
		return false, "amount below the promo code minimum"
	}
	return true, ""
}

// Apply computes the discount and final amount for a qualifying total.
// Percentage discounts take value% of the amount; fixed discounts are capped
// at the amount so the final total never goes negative. A failed validation
// yields zero discount and the unchanged amount.
func (p *PromoCode) Apply(now time.Time, amountCents int64) (discountCents, finalCents int64, ok bool, reason string) {
	if valid, why := p.ValidateAt(now, amountCents); !valid {
		return 0, amountCents, false, why
	}

	var discount int64
	switch p.discountType {
	case DiscountTypePercentage:
		discount = amountCents * p.discountValue / 100
	case DiscountTypeFixed:
		discount = p.discountValue
	}
	if discount > amountCents {
		discount = amountCents
	}

	return discount, amountCents - discount, true, ""
}

// IncrementUsage counts one confirmed application. The cap is re-checked
// here because usage is incremented after validation, possibly much later.
func (p *PromoCode) IncrementUsage() error {
	if p.maxUses > 0 && p.usedCount >= p.maxUses {
		return domain.NewConflictError("promo code usage limit reached")
	}
	p.usedCount++
	p.updatedAt = time.Now().UTC()
	return nil
}

// Deactivate retires the code.
func (p *PromoCode) Deactivate() {
	p.active = false
	p.updatedAt = time.Now().UTC()
}

func (p *PromoCode) ID() uuid.UUID              { return p.id }
func (p *PromoCode) Code() string               { return p.code }
func (p *PromoCode) Description() string        { return p.description }
func (p *PromoCode) DiscountType() DiscountType { return p.discountType }
func (p *PromoCode) DiscountValue() int64       { return p.discountValue }
func (p *PromoCode) MinimumAmountCents() int64  { return p.minimumAmountCents }
func (p *PromoCode) MaxUses() int               { return p.maxUses }
func (p *PromoCode) UsedCount() int             { return p.usedCount }
func (p *PromoCode) StartsAt() time.Time        { return p.startsAt }
func (p *PromoCode) ExpiresAt() time.Time       { return p.expiresAt }
func (p *PromoCode) IsActive() bool             { return p.active }
func (p *PromoCode) CreatedAt() time.Time       { return p.createdAt }
func (p *PromoCode) UpdatedAt() time.Time       { return p.updatedAt }
