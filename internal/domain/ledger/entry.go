package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Action tags the business operation behind an inventory or status change.
type Action string

const (
	ActionReserve    Action = "reserve"
	ActionConfirm    Action = "confirm"
	ActionCancel     Action = "cancel"
	ActionCheckout   Action = "checkout"
	ActionNoShow     Action = "no_show"
	ActionAdjustment Action = "adjustment"
)

// SystemActor is recorded when a change is driven by the service itself
// (payment callbacks, scheduled lifecycle advances) rather than a guest.
const SystemActor = "system"

// Snapshot captures the audited state around a mutation.
type Snapshot struct {
	AvailableUnits int    `json:"available_units"`
	Status         string `json:"status,omitempty"`
}

// Entry is one immutable audit record. Entries are append-only: nothing in
// the service updates or deletes them after the write.
type Entry struct {
	ID            uuid.UUID
	ReservationID *uuid.UUID
	RoomID        uuid.UUID
	Action        Action
	BeforeState   Snapshot
	AfterState    Snapshot
	QuantityDelta int
	Description   string
	PerformedBy   string
	RecordedAt    time.Time
}

// NewEntry builds an audit record. reservationID may be uuid.Nil for pure
// inventory adjustments.
func NewEntry(action Action, roomID uuid.UUID, reservationID uuid.UUID, before, after Snapshot, delta int, performedBy, description string, now time.Time) *Entry {
	e := &Entry{
		ID:            uuid.New(),
		RoomID:        roomID,
		Action:        action,
		BeforeState:   before,
		AfterState:    after,
		QuantityDelta: delta,
		Description:   description,
		PerformedBy:   performedBy,
		RecordedAt:    now.UTC(),
	}
	if reservationID != uuid.Nil {
		rid := reservationID
		e.ReservationID = &rid
	}
	return e
}
