package repository

import (
	"context"
	"errors"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	reservationDomain "github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationModel is the GORM persistence model for the reservations table.
type ReservationModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ReservationNumber   string     `gorm:"type:varchar(20);uniqueIndex;not null"`
	GuestID             uuid.UUID  `gorm:"type:uuid;index;not null"`
	RoomID              uuid.UUID  `gorm:"type:uuid;index;not null"`
	CheckInDate         time.Time  `gorm:"type:date;not null"`
	CheckOutDate        time.Time  `gorm:"type:date;not null"`
	Adults              int        `gorm:"not null"`
	Children            int        `gorm:"not null"`
	TotalAmountCents    int64      `gorm:"not null"`
	DiscountAmountCents int64      `gorm:"not null;default:0"`
	PromoCode           string     `gorm:"type:varchar(50)"`
	Status              string     `gorm:"type:varchar(20);not null;default:'pending'"`
	SpecialRequests     string     `gorm:"type:text"`
	CheckedInAt         *time.Time `gorm:"type:timestamptz"`
	ConfirmedAt         *time.Time `gorm:"type:timestamptz"`
	CancelledAt         *time.Time `gorm:"type:timestamptz"`
	CancellationReason  string     `gorm:"type:text"`
	Version             int64      `gorm:"not null;default:1"`
	CreatedAt           time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (ReservationModel) TableName() string {
	return "reservations"
}

// ReservationRepositoryImpl is the GORM-based implementation of
// ReservationRepository.
type ReservationRepositoryImpl struct {
	db *gorm.DB
}

// NewReservationRepository creates a new GORM-based reservation repository.
func NewReservationRepository(db *gorm.DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

// FindByID retrieves a reservation by its unique ID.
func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*reservationDomain.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", id.String())
		}
		return nil, err
	}
	return reservationToDomain(&model), nil
}

// FindByNumber retrieves a reservation by its guest-facing number.
func (r *ReservationRepositoryImpl) FindByNumber(ctx context.Context, number string) (*reservationDomain.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("reservation_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", number)
		}
		return nil, err
	}
	return reservationToDomain(&model), nil
}

// ListByGuest retrieves a guest's reservations, newest first.
func (r *ReservationRepositoryImpl) ListByGuest(ctx context.Context, guestID uuid.UUID) ([]*reservationDomain.Reservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).Where("guest_id = ?", guestID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return reservationsToDomain(models), nil
}

// ListArrivals retrieves confirmed reservations checking in on the given day
// that have not been checked in yet.
func (r *ReservationRepositoryImpl) ListArrivals(ctx context.Context, day time.Time) ([]*reservationDomain.Reservation, error) {
	day = day.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND check_in_date = ? AND checked_in_at IS NULL", string(reservationDomain.StatusConfirmed), dayStart).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return reservationsToDomain(models), nil
}

// Stats returns counts and revenue grouped by status.
func (r *ReservationRepositoryImpl) Stats(ctx context.Context, filter reservationDomain.StatsFilter) (map[reservationDomain.Status]reservationDomain.StatusStats, error) {
	type row struct {
		Status       string
		Count        int64
		RevenueCents int64
	}

	query := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Select("status, count(*) as count, COALESCE(SUM(total_amount_cents), 0) as revenue_cents").
		Group("status")

	if filter.RoomID != uuid.Nil {
		query = query.Where("room_id = ?", filter.RoomID)
	}
	if !filter.FromDate.IsZero() {
		query = query.Where("check_in_date >= ?", filter.FromDate.UTC())
	}
	if !filter.ToDate.IsZero() {
		query = query.Where("check_in_date <= ?", filter.ToDate.UTC())
	}

	var rows []row
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := make(map[reservationDomain.Status]reservationDomain.StatusStats, len(rows))
	for _, rw := range rows {
		stats[reservationDomain.Status(rw.Status)] = reservationDomain.StatusStats{
			Count:        rw.Count,
			RevenueCents: rw.RevenueCents,
		}
	}
	return stats, nil
}

// Save persists a new reservation aggregate.
func (r *ReservationRepositoryImpl) Save(ctx context.Context, res *reservationDomain.Reservation) error {
	return r.db.WithContext(ctx).Create(reservationToModel(res)).Error
}

// Update persists changes to an existing reservation with optimistic locking.
func (r *ReservationRepositoryImpl) Update(ctx context.Context, res *reservationDomain.Reservation) error {
	model := reservationToModel(res)
	previousVersion := res.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("reservation was modified by another transaction")
	}
	return nil
}

// Delete removes a reservation record. Only sagas call this, to erase a
// record that never became visible.
func (r *ReservationRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&ReservationModel{}).Error
}

func reservationsToDomain(models []ReservationModel) []*reservationDomain.Reservation {
	out := make([]*reservationDomain.Reservation, len(models))
	for i := range models {
		out[i] = reservationToDomain(&models[i])
	}
	return out
}

func reservationToDomain(m *ReservationModel) *reservationDomain.Reservation {
	return reservationDomain.Reconstitute(
		m.ID,
		m.ReservationNumber,
		m.GuestID, m.RoomID,
		m.CheckInDate, m.CheckOutDate,
		m.Adults, m.Children,
		m.TotalAmountCents, m.DiscountAmountCents,
		m.PromoCode,
		reservationDomain.Status(m.Status),
		m.SpecialRequests,
		m.CheckedInAt, m.ConfirmedAt, m.CancelledAt,
		m.CancellationReason,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}

func reservationToModel(res *reservationDomain.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:                  res.ID(),
		ReservationNumber:   res.ReservationNumber(),
		GuestID:             res.GuestID(),
		RoomID:              res.RoomID(),
		CheckInDate:         res.CheckInDate(),
		CheckOutDate:        res.CheckOutDate(),
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
		Version:             res.Version(),
		CreatedAt:           res.CreatedAt(),
		UpdatedAt:           res.UpdatedAt(),
	}
}
