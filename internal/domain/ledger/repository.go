package ledger

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRepository is the append-only persistence contract for audit
// entries. Append is the only write; if it fails, the business operation
// that produced the entry must be treated as failed and compensated.
type LedgerRepository interface {
	Append(ctx context.Context, e *Entry) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Entry, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*Entry, error)
	ListByAction(ctx context.Context, action Action) ([]*Entry, error)
}
