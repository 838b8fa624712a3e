package repository

import (
	"context"
	"errors"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	paymentDomain "github.com/belmonthotel/service-reservation/internal/domain/payment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentModel is the GORM persistence model for the payments table.
type PaymentModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ReservationID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProviderInvoiceID string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Method            string     `gorm:"type:varchar(50);not null"`
	AmountCents       int64      `gorm:"not null"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentURL        string     `gorm:"type:text"`
	PaidAt            *time.Time `gorm:"type:timestamptz"`
	ExpiresAt         *time.Time `gorm:"type:timestamptz"`
	FailureReason     string     `gorm:"type:text"`
	Version           int64      `gorm:"not null;default:1"`
	CreatedAt         time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentRepositoryImpl is the GORM-based implementation of PaymentRepository.
type PaymentRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new GORM-based payment repository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepositoryImpl {
	return &PaymentRepositoryImpl{db: db}
}

// FindByID retrieves a payment by its unique ID.
func (r *PaymentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", id.String())
		}
		return nil, err
	}
	return paymentToDomain(&model), nil
}

// FindByProviderInvoiceID retrieves a payment by the provider's invoice ID.
func (r *PaymentRepositoryImpl) FindByProviderInvoiceID(ctx context.Context, invoiceID string) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("provider_invoice_id = ?", invoiceID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", invoiceID)
		}
		return nil, err
	}
	return paymentToDomain(&model), nil
}

// FindPendingByReservationID retrieves the open payment attempt for a
// reservation, if any.
func (r *PaymentRepositoryImpl) FindPendingByReservationID(ctx context.Context, reservationID uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ? AND status = ?", reservationID, string(paymentDomain.StatusPending)).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", reservationID.String())
		}
		return nil, err
	}
	return paymentToDomain(&model), nil
}

// ListByReservationID retrieves all payment attempts for a reservation,
// newest first.
func (r *PaymentRepositoryImpl) ListByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*paymentDomain.Payment, error) {
	var models []PaymentModel
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	payments := make([]*paymentDomain.Payment, len(models))
	for i := range models {
		payments[i] = paymentToDomain(&models[i])
	}
	return payments, nil
}

// Save persists a new payment aggregate.
func (r *PaymentRepositoryImpl) Save(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Create(paymentToModel(p)).Error
}

// Update persists changes to an existing payment with optimistic locking.
func (r *PaymentRepositoryImpl) Update(ctx context.Context, p *paymentDomain.Payment) error {
	model := paymentToModel(p)
	previousVersion := p.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("payment was modified by another transaction")
	}
	return nil
}

func paymentToDomain(m *PaymentModel) *paymentDomain.Payment {
	return paymentDomain.Reconstitute(
		m.ID, m.ReservationID,
		m.ProviderInvoiceID, m.Method,
		m.AmountCents,
		m.Currency,
		paymentDomain.Status(m.Status),
		m.PaymentURL,
		m.PaidAt, m.ExpiresAt,
		m.FailureReason,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}

func paymentToModel(p *paymentDomain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:                p.ID(),
		ReservationID:     p.ReservationID(),
		ProviderInvoiceID: p.ProviderInvoiceID(),
		Method:            p.Method(),
		AmountCents:       p.AmountCents(),
		Currency:          p.Currency(),
		Status:            string(p.Status()),
		PaymentURL:        p.PaymentURL(),
		PaidAt:            p.PaidAt(),
		ExpiresAt:         p.ExpiresAt(),
		FailureReason:     p.FailureReason(),
		Version:           p.Version(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}
}
