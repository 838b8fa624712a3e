package application

import (
	"context"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/belmonthotel/service-reservation/internal/domain/room"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRoomRequest is the DTO for registering a room type.
type CreateRoomRequest struct {
	RoomType         string `json:"room_type" binding:"required"`
	Description      string `json:"description"`
	NightlyRateCents int64  `json:"nightly_rate_cents" binding:"required,gt=0"`
	TotalUnits       int    `json:"total_units" binding:"required,gte=0"`
	MaxAdults        int    `json:"max_adults" binding:"required,gt=0"`
	MaxChildren      int    `json:"max_children" binding:"gte=0"`
	MaxGuests        int    `json:"max_guests" binding:"required,gt=0"`
}

// RoomDTO is the API response DTO for room data.
type RoomDTO struct {
	ID               uuid.UUID `json:"id"`
	RoomType         string    `json:"room_type"`
	Description      string    `json:"description,omitempty"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	TotalUnits       int       `json:"total_units"`
	AvailableUnits   int       `json:"available_units"`
	MaxAdults        int       `json:"max_adults"`
	MaxChildren      int       `json:"max_children"`
	MaxGuests        int       `json:"max_guests"`
	OccupancyPercent float64   `json:"occupancy_percent"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// LedgerEntryDTO is the API response DTO for an inventory ledger entry.
type LedgerEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	Action        string     `json:"action"`
	RoomID        uuid.UUID  `json:"room_id"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	UnitsDelta    int        `json:"units_delta"`
	BeforeUnits   int        `json:"before_units"`
	AfterUnits    int        `json:"after_units"`
	BeforeStatus  string     `json:"before_status,omitempty"`
	AfterStatus   string     `json:"after_status,omitempty"`
	PerformedBy   string     `json:"performed_by"`
	Description   string     `json:"description,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RoomService is the application service for room inventory use cases,
// including the read side of the inventory ledger.
type RoomService struct {
	rooms   room.RoomRepository
	entries ledger.LedgerRepository
	logger  *zap.Logger
}

// NewRoomService creates a new RoomService.
func NewRoomService(rooms room.RoomRepository, entries ledger.LedgerRepository, logger *zap.Logger) *RoomService {
	return &RoomService{rooms: rooms, entries: entries, logger: logger}
}

// CreateRoom registers a new room type with all units available. Staff only.
func (s *RoomService) CreateRoom(ctx context.Context, actor Actor, req CreateRoomRequest) (*RoomDTO, error) {
	if !actor.Admin {
		return nil, domain.NewUnauthorizedError("staff access required")
	}

	rm, err := room.NewRoom(req.RoomType, req.Description, req.NightlyRateCents, req.TotalUnits, req.MaxAdults, req.MaxChildren, req.MaxGuests)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Save(ctx, rm); err != nil {
		return nil, err
	}

	s.logger.Info("room created",
		zap.String("room_type", rm.RoomType()),
		zap.Int("total_units", rm.TotalUnits()),
	)

	dto := toRoomDTO(rm)
	return &dto, nil
}

// ListRooms returns all active room types with current availability.
func (s *RoomService) ListRooms(ctx context.Context) ([]RoomDTO, error) {
	list, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]RoomDTO, 0, len(list))
	for _, rm := range list {
		dtos = append(dtos, toRoomDTO(rm))
	}
	return dtos, nil
}

// GetRoom returns one room type.
func (s *RoomService) GetRoom(ctx context.Context, id uuid.UUID) (*RoomDTO, error) {
	rm, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toRoomDTO(rm)
	return &dto, nil
}

// DeactivateRoom removes a room type from the bookable pool. Staff only.
func (s *RoomService) DeactivateRoom(ctx context.Context, actor Actor, id uuid.UUID) (*RoomDTO, error) {
	if !actor.Admin {
		return nil, domain.NewUnauthorizedError("staff access required")
	}
	rm, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.Deactivate()
	if err := s.rooms.Update(ctx, rm); err != nil {
		return nil, err
	}
	dto := toRoomDTO(rm)
	return &dto, nil
}

// RoomLedger returns the full inventory movement history for a room, newest
// first. Staff only.
func (s *RoomService) RoomLedger(ctx context.Context, actor Actor, roomID uuid.UUID) ([]LedgerEntryDTO, error) {
	if !actor.Admin {
		return nil, domain.NewUnauthorizedError("staff access required")
	}
	list, err := s.entries.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return toLedgerDTOs(list), nil
}

// ReservationLedger returns the inventory movements attributed to one
// reservation. Staff only.
func (s *RoomService) ReservationLedger(ctx context.Context, actor Actor, reservationID uuid.UUID) ([]LedgerEntryDTO, error) {
	if !actor.Admin {
		return nil, domain.NewUnauthorizedError("staff access required")
	}
	list, err := s.entries.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return toLedgerDTOs(list), nil
}

func toRoomDTO(rm *room.Room) RoomDTO {
	return RoomDTO{
		ID:               rm.ID(),
		RoomType:         rm.RoomType(),
		Description:      rm.Description(),
		NightlyRateCents: rm.NightlyRateCents(),
		TotalUnits:       rm.TotalUnits(),
		AvailableUnits:   rm.AvailableUnits(),
		MaxAdults:        rm.MaxAdults(),
		MaxChildren:      rm.MaxChildren(),
		MaxGuests:        rm.MaxGuests(),
		OccupancyPercent: rm.OccupancyPercent(),
		Active:           rm.IsActive(),
		CreatedAt:        rm.CreatedAt(),
	}
}

func toLedgerDTOs(list []*ledger.Entry) []LedgerEntryDTO {
	dtos := make([]LedgerEntryDTO, 0, len(list))
	for _, e := range list {
		dtos = append(dtos, LedgerEntryDTO{
			ID:            e.ID,
			Action:        string(e.Action),
			RoomID:        e.RoomID,
			ReservationID: e.ReservationID,
			UnitsDelta:    e.QuantityDelta,
			BeforeUnits:   e.BeforeState.AvailableUnits,
			AfterUnits:    e.AfterState.AvailableUnits,
			BeforeStatus:  e.BeforeState.Status,
			AfterStatus:   e.AfterState.Status,
			PerformedBy:   e.PerformedBy,
			Description:   e.Description,
			CreatedAt:     e.RecordedAt,
		})
	}
	return dtos
}
