package room

import (
	"context"

	"github.com/google/uuid"
)

// RoomRepository defines the persistence contract for Room aggregates.
type RoomRepository interface {
	// FindByID retrieves a room by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Room, error)

	// ListActive retrieves all bookable rooms.
	ListActive(ctx context.Context) ([]*Room, error)

	// Save persists a new room aggregate.
	Save(ctx context.Context, r *Room) error

	// Update persists changes to an existing room, including its
	// availability counter.
	Update(ctx context.Context, r *Room) error
}
