package repository

import (
	"context"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/queue"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueEntryModel is the GORM persistence model for the booking_queue table.
type QueueEntryModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	GuestID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	RoomID       uuid.UUID  `gorm:"type:uuid;index;not null"`
	Payload      string     `gorm:"type:jsonb"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending'"`
	Priority     int        `gorm:"not null;default:0"`
	ErrorMessage string     `gorm:"type:text"`
	ProcessedAt  *time.Time `gorm:"type:timestamptz"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (QueueEntryModel) TableName() string {
	return "booking_queue"
}

// QueueRepositoryImpl is the GORM-based implementation of EntryRepository.
type QueueRepositoryImpl struct {
	db *gorm.DB
}

// NewQueueRepository creates a new GORM-based queue entry repository.
func NewQueueRepository(db *gorm.DB) *QueueRepositoryImpl {
	return &QueueRepositoryImpl{db: db}
}

// Save persists a new queue entry.
func (r *QueueRepositoryImpl) Save(ctx context.Context, e *queue.Entry) error {
	return r.db.WithContext(ctx).Create(queueToModel(e)).Error
}

// Update persists a queue entry's status transition.
func (r *QueueRepositoryImpl) Update(ctx context.Context, e *queue.Entry) error {
	model := queueToModel(e)
	result := r.db.WithContext(ctx).
		Model(&QueueEntryModel{}).
		Where("id = ?", model.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("QueueEntry", model.ID.String())
	}
	return nil
}

// ListByRoom retrieves a room's queue history, oldest first.
func (r *QueueRepositoryImpl) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*queue.Entry, error) {
	var models []QueueEntryModel
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*queue.Entry, len(models))
	for i := range models {
		entries[i] = queueToDomain(&models[i])
	}
	return entries, nil
}

func queueToDomain(m *QueueEntryModel) *queue.Entry {
	return &queue.Entry{
		ID:           m.ID,
		GuestID:      m.GuestID,
		RoomID:       m.RoomID,
		Payload:      m.Payload,
		Status:       queue.EntryStatus(m.Status),
		Priority:     m.Priority,
		ErrorMessage: m.ErrorMessage,
		ProcessedAt:  m.ProcessedAt,
		CreatedAt:    m.CreatedAt,
	}
}

func queueToModel(e *queue.Entry) *QueueEntryModel {
	return &QueueEntryModel{
		ID:           e.ID,
		GuestID:      e.GuestID,
		RoomID:       e.RoomID,
		Payload:      e.Payload,
		Status:       string(e.Status),
		Priority:     e.Priority,
		ErrorMessage: e.ErrorMessage,
		ProcessedAt:  e.ProcessedAt,
		CreatedAt:    e.CreatedAt,
	}
}
