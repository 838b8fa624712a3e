package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryStatus tracks a queue entry through its lifetime.
type EntryStatus string

const (
	EntryPending    EntryStatus = "pending"
	EntryProcessing EntryStatus = "processing"
	EntryCompleted  EntryStatus = "completed"
	EntryFailed     EntryStatus = "failed"
)

// Entry is one booking attempt awaiting its turn on a room's serialization
// point. Entries are terminal once the attempt resolves and are retained for
// audit; failed entries are not retried by the queue itself.
type Entry struct {
	ID           uuid.UUID
	GuestID      uuid.UUID
	RoomID       uuid.UUID
	Payload      string
	Status       EntryStatus
	Priority     int
	ErrorMessage string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
}

// NewEntry creates a pending queue entry. Higher priority is processed
// first; equal priorities keep arrival order.
func NewEntry(guestID, roomID uuid.UUID, payload string, priority int) *Entry {
	return &Entry{
		ID:        uuid.New(),
		GuestID:   guestID,
		RoomID:    roomID,
		Payload:   payload,
		Status:    EntryPending,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
}

// EntryRepository persists queue entries for audit and diagnostics.
type EntryRepository interface {
	Save(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Entry, error)
}
