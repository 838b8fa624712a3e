package repository

import (
	"context"
	"errors"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	roomDomain "github.com/belmonthotel/service-reservation/internal/domain/room"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomModel is the GORM persistence model for the rooms table.
type RoomModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	RoomType         string    `gorm:"type:varchar(100);not null"`
	Description      string    `gorm:"type:text"`
	NightlyRateCents int64     `gorm:"not null"`
	TotalUnits       int       `gorm:"not null"`
	AvailableUnits   int       `gorm:"not null"`
	MaxAdults        int       `gorm:"not null"`
	MaxChildren      int       `gorm:"not null"`
	MaxGuests        int       `gorm:"not null"`
	Active           bool      `gorm:"not null;default:true"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (RoomModel) TableName() string {
	return "rooms"
}

// RoomRepositoryImpl is the GORM-based implementation of RoomRepository.
type RoomRepositoryImpl struct {
	db *gorm.DB
}

// NewRoomRepository creates a new GORM-based room repository.
func NewRoomRepository(db *gorm.DB) *RoomRepositoryImpl {
	return &RoomRepositoryImpl{db: db}
}

// FindByID retrieves a room by its unique ID.
func (r *RoomRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*roomDomain.Room, error) {
	var model RoomModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Room", id.String())
		}
		return nil, err
	}
	return roomToDomain(&model), nil
}

// ListActive retrieves all active rooms ordered by room type.
func (r *RoomRepositoryImpl) ListActive(ctx context.Context) ([]*roomDomain.Room, error) {
	var models []RoomModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("room_type ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	rooms := make([]*roomDomain.Room, len(models))
	for i := range models {
		rooms[i] = roomToDomain(&models[i])
	}
	return rooms, nil
}

// Save persists a new room aggregate.
func (r *RoomRepositoryImpl) Save(ctx context.Context, rm *roomDomain.Room) error {
	return r.db.WithContext(ctx).Create(roomToModel(rm)).Error
}

// Update persists changes to an existing room. Room writes are serialized by
// the booking queue, so the availability counter needs no version column; a
// plain update by primary key is safe.
func (r *RoomRepositoryImpl) Update(ctx context.Context, rm *roomDomain.Room) error {
	model := roomToModel(rm)
	result := r.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("id = ?", model.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Room", model.ID.String())
	}
	return nil
}

func roomToDomain(m *RoomModel) *roomDomain.Room {
	return roomDomain.Reconstitute(
		m.ID,
		m.RoomType, m.Description,
		m.NightlyRateCents,
		m.TotalUnits, m.AvailableUnits, m.MaxAdults, m.MaxChildren, m.MaxGuests,
		m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}

func roomToModel(rm *roomDomain.Room) *RoomModel {
	return &RoomModel{
		ID:               rm.ID(),
		RoomType:         rm.RoomType(),
		Description:      rm.Description(),
		NightlyRateCents: rm.NightlyRateCents(),
		TotalUnits:       rm.TotalUnits(),
		AvailableUnits:   rm.AvailableUnits(),
		MaxAdults:        rm.MaxAdults(),
		MaxChildren:      rm.MaxChildren(),
		MaxGuests:        rm.MaxGuests(),
		Active:           rm.IsActive(),
		CreatedAt:        rm.CreatedAt(),
		UpdatedAt:        rm.UpdatedAt(),
	}
}
