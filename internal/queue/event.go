// Package queue carries booking notifications over RabbitMQ: a publisher
// used as the booking service's notification sink and a background consumer
// that logs each event and relays it to the holder by email.
package queue

import (
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Queue names.  Both are durable.
const (
	QueueConfirmed = "booking.confirmed"
	QueueFailed    = "booking.failed"
)

// BookingEvent is published once per finished booking attempt.  It carries
// everything the consumer needs to log and notify without reading the
// ledger.
type BookingEvent struct {
	Type          string          `json:"type"`
	ReservationID string          `json:"reservation_id,omitempty"`
	HolderEmail   string          `json:"holder_email"`
	HolderName    string          `json:"holder_name,omitempty"`
	Departure     model.Departure `json:"departure"`
	DepartureKey  string          `json:"departure_key"`
	Seats         []model.Seat    `json:"seats,omitempty"`
	SeatLabels    []string        `json:"seat_labels,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    string          `json:"occurred_at"`
}

func ConfirmedEvent(res *model.Reservation, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          QueueConfirmed,
		ReservationID: res.ID,
		HolderEmail:   res.HolderEmail,
		HolderName:    res.HolderName,
		Departure:     res.Departure,
		DepartureKey:  res.DepartureKey,
		Seats:         res.Seats,
		SeatLabels:    model.SeatLabels(res.Seats),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

func FailedEvent(n model.FailureNotice, at time.Time) BookingEvent {
	return BookingEvent{
		Type:         QueueFailed,
		HolderEmail:  n.HolderEmail,
		HolderName:   n.HolderName,
		Departure:    n.Departure,
		DepartureKey: n.Departure.Key(),
		Seats:        n.Seats,
		SeatLabels:   model.SeatLabels(n.Seats),
		Reason:       n.Reason,
		OccurredAt:   at.UTC().Format(time.RFC3339),
	}
}

func (e BookingEvent) reservation() *model.Reservation {
	return &model.Reservation{
		ID:           e.ReservationID,
		Departure:    e.Departure,
		DepartureKey: e.DepartureKey,
		HolderEmail:  e.HolderEmail,
		HolderName:   e.HolderName,
		Seats:        e.Seats,
		Status:       model.StatusConfirmed,
	}
}

func (e BookingEvent) notice() model.FailureNotice {
	return model.FailureNotice{
		HolderEmail: e.HolderEmail,
		HolderName:  e.HolderName,
		Departure:   e.Departure,
		Seats:       e.Seats,
		Reason:      e.Reason,
	}
}
