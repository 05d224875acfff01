// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// QueueName is the durable queue carrying reservation events.
const QueueName = "reservation.events"

// Event types.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a reservation is created or cancelled.
// It carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type ReservationEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	ScreeningID   uint64    `json:"screening_id"`
	MovieID       uint64    `json:"movie_id"`
	HallID        uint64    `json:"hall_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	OrderID       string    `json:"order_id,omitempty"`
	SeatsLeft     int       `json:"seats_left"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewReservationEvent builds an event of type typ for res in screening s.
func NewReservationEvent(id, typ string, res model.Reservation, s model.Screening, at time.Time) ReservationEvent {
	return ReservationEvent{
		ID:            id,
		Type:          typ,
		ReservationID: res.ID,
		UserID:        res.UserID,
		ScreeningID:   res.ScreeningID,
		MovieID:       s.MovieID,
		HallID:        s.HallID,
		Date:          s.Date,
		Time:          s.Time,
		OrderID:       res.OrderID,
		SeatsLeft:     s.NumberOfAvailableSeats,
		OccurredAt:    at.UTC(),
	}
}
