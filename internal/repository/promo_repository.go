package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	promoDomain "github.com/belmonthotel/service-reservation/internal/domain/promo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromoModel is the GORM persistence model for the promo_codes table.
type PromoModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Code               string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Description        string    `gorm:"type:text"`
	DiscountType       string    `gorm:"type:varchar(20);not null"`
	DiscountValue      int64     `gorm:"not null"`
	MinimumAmountCents int64     `gorm:"not null;default:0"`
	MaxUses            int       `gorm:"not null;default:0"`
	UsedCount          int       `gorm:"not null;default:0"`
	StartsAt           time.Time `gorm:"type:timestamptz;not null"`
	ExpiresAt          time.Time `gorm:"type:timestamptz;not null"`
	Active             bool      `gorm:"not null;default:true"`
	CreatedAt          time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (PromoModel) TableName() string {
	return "promo_codes"
}

// PromoUsageModel is the GORM persistence model for the promo_usages table.
// The unique (promo_id, reservation_id) index is what caps promo usage at one
// increment per reservation.
type PromoUsageModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	PromoID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_promo_reservation"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_promo_reservation"`
	GuestID       uuid.UUID `gorm:"type:uuid;index;not null"`
	DiscountCents int64     `gorm:"not null"`
	UsedAt        time.Time `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (PromoUsageModel) TableName() string {
	return "promo_usages"
}

// PromoRepositoryImpl is the GORM-based implementation of PromoRepository.
type PromoRepositoryImpl struct {
	db *gorm.DB
}

// NewPromoRepository creates a new GORM-based promo repository.
func NewPromoRepository(db *gorm.DB) *PromoRepositoryImpl {
	return &PromoRepositoryImpl{db: db}
}

// Save persists a new promo code.
func (r *PromoRepositoryImpl) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	return r.db.WithContext(ctx).Create(promoToModel(p)).Error
}

// Update persists changes to an existing promo code.
func (r *PromoRepositoryImpl) Update(ctx context.Context, p *promoDomain.PromoCode) error {
	model := promoToModel(p)
	result := r.db.WithContext(ctx).
		Model(&PromoModel{}).
		Where("id = ?", model.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("PromoCode", model.ID.String())
	}
	return nil
}

// FindByCode retrieves a promo code by its normalized code.
func (r *PromoRepositoryImpl) FindByCode(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var model PromoModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PromoCode", code)
		}
		return nil, err
	}
	return promoToDomain(&model), nil
}

// FindByID retrieves a promo code by its unique ID.
func (r *PromoRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	var model PromoModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PromoCode", id.String())
		}
		return nil, err
	}
	return promoToDomain(&model), nil
}

// FindActive retrieves promo codes currently inside their validity window.
func (r *PromoRepositoryImpl) FindActive(ctx context.Context, now time.Time) ([]*promoDomain.PromoCode, error) {
	var models []PromoModel
	if err := r.db.WithContext(ctx).
		Where("active = ? AND starts_at <= ? AND expires_at >= ?", true, now.UTC(), now.UTC()).
		Order("code ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	promos := make([]*promoDomain.PromoCode, len(models))
	for i := range models {
		promos[i] = promoToDomain(&models[i])
	}
	return promos, nil
}

// SaveUsage records one confirmed application of a promo code.
func (r *PromoRepositoryImpl) SaveUsage(ctx context.Context, usage *promoDomain.PromoUsage) error {
	model := &PromoUsageModel{
		ID:            usage.ID,
		PromoID:       usage.PromoID,
		ReservationID: usage.ReservationID,
		GuestID:       usage.GuestID,
		DiscountCents: usage.DiscountCents,
		UsedAt:        usage.UsedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("promo usage already recorded for reservation")
		}
		return err
	}
	return nil
}

// HasReservationUsage reports whether the promo has already been counted for
// the reservation.
func (r *PromoRepositoryImpl) HasReservationUsage(ctx context.Context, promoID, reservationID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&PromoUsageModel{}).
		Where("promo_id = ? AND reservation_id = ?", promoID, reservationID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func promoToDomain(m *PromoModel) *promoDomain.PromoCode {
	return promoDomain.Reconstruct(
		m.ID, m.Code, m.Description,
		promoDomain.DiscountType(m.DiscountType),
		m.DiscountValue, m.MinimumAmountCents,
		m.MaxUses, m.UsedCount,
		m.StartsAt, m.ExpiresAt,
		m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}

func promoToModel(p *promoDomain.PromoCode) *PromoModel {
	return &PromoModel{
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
		UpdatedAt:          p.UpdatedAt(),
	}
}
