package room

import (
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// Room is the aggregate root for a bookable room type and its unit inventory.
//
// availableUnits only changes through TryReserve (-1) and Release (+1), and
// always satisfies 0 <= availableUnits <= totalUnits. Both operations assume a
// single writer per room at a time; the booking queue serializes mutating
// callers, the aggregate itself holds no lock.
type Room struct {
	id               uuid.UUID
	roomType         string
	description      string
	nightlyRateCents int64
	totalUnits       int
	availableUnits   int
	maxAdults        int
	maxChildren      int
	maxGuests        int
	active           bool
	createdAt        time.Time
	updatedAt        time.Time
}

// NewRoom creates a room with all units available.
func NewRoom(roomType, description string, nightlyRateCents int64, totalUnits, maxAdults, maxChildren, maxGuests int) (*Room, error) {
	if roomType == "" {
		return nil, domain.NewValidationError("room type is required")
	}
	if nightlyRateCents <= 0 {
		return nil, domain.NewValidationError("nightly rate must be positive")
	}
	if totalUnits < 0 {
		return nil, domain.NewValidationError("total units cannot be negative")
	}
	if maxAdults <= 0 || maxGuests <= 0 {
		return nil, domain.NewValidationError("capacity limits must be positive")
	}

	now := time.Now().UTC()
	return &Room{
		id:               uuid.New(),
		roomType:         roomType,
		description:      description,
		nightlyRateCents: nightlyRateCents,
		totalUnits:       totalUnits,
		availableUnits:   totalUnits,
		maxAdults:        maxAdults,
		maxChildren:      maxChildren,
		maxGuests:        maxGuests,
		active:           true,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstitute rebuilds a Room from persisted data.
func Reconstitute(
	id uuid.UUID,
	roomType, description string,
	nightlyRateCents int64,
	totalUnits, availableUnits, maxAdults, maxChildren, maxGuests int,
	active bool,
	createdAt, updatedAt time.Time,
) *Room {
	return &Room{
		id:               id,
		roomType:         roomType,
		description:      description,
		nightlyRateCents: nightlyRateCents,
		totalUnits:       totalUnits,
		availableUnits:   availableUnits,
		maxAdults:        maxAdults,
		maxChildren:      maxChildren,
		maxGuests:        maxGuests,
		active:           active,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (r *Room) ID() uuid.UUID           { return r.id }
func (r *Room) RoomType() string        { return r.roomType }
func (r *Room) Description() string     { return r.description }
func (r *Room) NightlyRateCents() int64 { return r.nightlyRateCents }
func (r *Room) TotalUnits() int         { return r.totalUnits }
func (r *Room) AvailableUnits() int     { return r.availableUnits }
func (r *Room) MaxAdults() int          { return r.maxAdults }
func (r *Room) MaxChildren() int        { return r.maxChildren }
func (r *Room) MaxGuests() int          { return r.maxGuests }
func (r *Room) IsActive() bool          { return r.active }
func (r *Room) CreatedAt() time.Time    { return r.createdAt }
func (r *Room) UpdatedAt() time.Time    { return r.updatedAt }

// IsBookable reports whether the room accepts new reservations.
func (r *Room) IsBookable() bool {
	return r.active && r.availableUnits > 0
}

// CanAccommodate checks the requested party against the room's capacity limits.
func (r *Room) CanAccommodate(adults, children int) error {
	if adults <= 0 {
		return domain.NewValidationError("at least one adult is required")
	}
	if children < 0 {
		return domain.NewValidationError("children count cannot be negative")
	}
	if adults > r.maxAdults {
		return domain.NewValidationError("adult count exceeds room capacity")
	}
	if children > r.maxChildren {
		return domain.NewValidationError("children count exceeds room capacity")
	}
	if adults+children > r.maxGuests {
		return domain.NewValidationError("total guests exceed room capacity")
	}
	return nil
}

// TryReserve decrements availableUnits by one if a unit is free and the room
// is active. It returns false with no effect otherwise.
func (r *Room) TryReserve() bool {
	if !r.active || r.availableUnits <= 0 {
		return false
	}
	r.availableUnits--
	r.updatedAt = time.Now().UTC()
	return true
}

// Release returns one unit to the pool. Releasing beyond totalUnits means a
// reserve/release pairing bug somewhere upstream; it is surfaced as an
// invariant violation rather than silently clamped.
func (r *Room) Release() error {
	if r.availableUnits >= r.totalUnits {
		return domain.NewInvariantError("release would exceed total units for room " + r.id.String())
	}
	r.availableUnits++
	r.updatedAt = time.Now().UTC()
	return nil
}

// Deactivate takes the room out of the bookable pool without touching
// existing reservations.
func (r *Room) Deactivate() {
	r.active = false
	r.updatedAt = time.Now().UTC()
}

// OccupancyPercent reports the share of units currently held.
func (r *Room) OccupancyPercent() float64 {
	if r.totalUnits == 0 {
		return 0
	}
	return float64(r.totalUnits-r.availableUnits) / float64(r.totalUnits) * 100
}
