package repository

import (
	"context"
	"time"

	ledgerDomain "github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerEntryModel is the GORM persistence model for the inventory_ledger
// table. Rows are append-only; no code path updates or deletes them.
type LedgerEntryModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ReservationID *uuid.UUID `gorm:"type:uuid;index"`
	RoomID        uuid.UUID  `gorm:"type:uuid;index;not null"`
	Action        string     `gorm:"type:varchar(20);index;not null"`
	QuantityDelta int        `gorm:"not null"`
	BeforeUnits   int        `gorm:"not null"`
	AfterUnits    int        `gorm:"not null"`
	BeforeStatus  string     `gorm:"type:varchar(20)"`
	AfterStatus   string     `gorm:"type:varchar(20)"`
	PerformedBy   string     `gorm:"type:varchar(100);not null"`
	Description   string     `gorm:"type:text"`
	RecordedAt    time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (LedgerEntryModel) TableName() string {
	return "inventory_ledger"
}

// LedgerRepositoryImpl is the GORM-based implementation of LedgerRepository.
type LedgerRepositoryImpl struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new GORM-based ledger repository.
func NewLedgerRepository(db *gorm.DB) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{db: db}
}

// Append persists one audit record.
func (r *LedgerRepositoryImpl) Append(ctx context.Context, e *ledgerDomain.Entry) error {
	return r.db.WithContext(ctx).Create(ledgerToModel(e)).Error
}

// ListByRoom retrieves a room's full movement history, newest first.
func (r *LedgerRepositoryImpl) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*ledgerDomain.Entry, error) {
	var models []LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("recorded_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return ledgerToDomainList(models), nil
}

// ListByReservation retrieves the movements attributed to one reservation.
func (r *LedgerRepositoryImpl) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*ledgerDomain.Entry, error) {
	var models []LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("recorded_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return ledgerToDomainList(models), nil
}

// ListByAction retrieves entries of one action kind, newest first.
func (r *LedgerRepositoryImpl) ListByAction(ctx context.Context, action ledgerDomain.Action) ([]*ledgerDomain.Entry, error) {
	var models []LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("action = ?", string(action)).
		Order("recorded_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return ledgerToDomainList(models), nil
}

func ledgerToDomainList(models []LedgerEntryModel) []*ledgerDomain.Entry {
	out := make([]*ledgerDomain.Entry, len(models))
	for i := range models {
		out[i] = ledgerToDomain(&models[i])
	}
	return out
}

func ledgerToDomain(m *LedgerEntryModel) *ledgerDomain.Entry {
	return &ledgerDomain.Entry{
		ID:            m.ID,
		ReservationID: m.ReservationID,
		RoomID:        m.RoomID,
		Action:        ledgerDomain.Action(m.Action),
		BeforeState:   ledgerDomain.Snapshot{AvailableUnits: m.BeforeUnits, Status: m.BeforeStatus},
		AfterState:    ledgerDomain.Snapshot{AvailableUnits: m.AfterUnits, Status: m.AfterStatus},
		QuantityDelta: m.QuantityDelta,
		Description:   m.Description,
		PerformedBy:   m.PerformedBy,
		RecordedAt:    m.RecordedAt,
	}
}

func ledgerToModel(e *ledgerDomain.Entry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:            e.ID,
		ReservationID: e.ReservationID,
		RoomID:        e.RoomID,
		Action:        string(e.Action),
		QuantityDelta: e.QuantityDelta,
		BeforeUnits:   e.BeforeState.AvailableUnits,
		AfterUnits:    e.AfterState.AvailableUnits,
		BeforeStatus:  e.BeforeState.Status,
		AfterStatus:   e.AfterState.Status,
		PerformedBy:   e.PerformedBy,
		Description:   e.Description,
		RecordedAt:    e.RecordedAt,
	}
}
