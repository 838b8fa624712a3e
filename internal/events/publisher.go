package events

import (
	"context"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TopicReservationEvents carries the reservation lifecycle stream.
	TopicReservationEvents = "reservation.events"

	eventSource = "service-reservation"

	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationCompleted = "reservation.completed"
	EventReservationNoShow    = "reservation.no_show"
)

// ReservationEvent is the payload published for every lifecycle transition.
type ReservationEvent struct {
	ReservationID     uuid.UUID `json:"reservation_id"`
	ReservationNumber string    `json:"reservation_number"`
	GuestID           uuid.UUID `json:"guest_id"`
	RoomID            uuid.UUID `json:"room_id"`
	Status            string    `json:"status"`
	TotalAmountCents  int64     `json:"total_amount_cents"`
	CheckInDate       time.Time `json:"check_in_date"`
	CheckOutDate      time.Time `json:"check_out_date"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Publisher emits reservation lifecycle events as CloudEvents on Kafka.
// Publishing is best effort: a broker outage must not fail the booking, so
// errors are logged and swallowed.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates a reservation event publisher.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish emits one lifecycle event for the reservation.
func (p *Publisher) Publish(ctx context.Context, eventType string, res *reservation.Reservation, occurredAt time.Time) {
	payload := ReservationEvent{
		ReservationID:     res.ID(),
		ReservationNumber: res.ReservationNumber(),
		GuestID:           res.GuestID(),
		RoomID:            res.RoomID(),
		Status:            string(res.Status()),
		TotalAmountCents:  res.TotalAmountCents(),
		CheckInDate:       res.CheckInDate(),
		CheckOutDate:      res.CheckOutDate(),
		OccurredAt:        occurredAt,
	}

	event, err := kafka.NewCloudEvent(eventSource, eventType, payload)
	if err != nil {
		p.logger.Error("failed to build reservation event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := p.producer.PublishEvent(ctx, TopicReservationEvents, event); err != nil {
		p.logger.Error("failed to publish reservation event",
			zap.String("event_type", eventType),
			zap.String("reservation_id", res.ID().String()),
			zap.Error(err),
		)
	}
}
