package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

// Reservation is a holder's claim on a seat set for one departure.  It is
// created Confirmed, may later flip to Cancelled, and is never deleted.
//
// Fields:
//
//	ID           – unique identifier; server-assigned or "BK-" prefixed local id.
//	RemoteID     – id returned by the remote booking API, when it answered.
//	Departure    – the departure as submitted by the holder.
//	DepartureKey – Identify(Departure), stored for conflict lookups.
//	HolderEmail  – owner identity; lower-cased and trimmed.
//	HolderName   – display name for notifications.
//	Seats        – non-empty set of unique seats.
//	Status       – Confirmed or Cancelled.
//	CreatedAt    – creation timestamp (UTC), immutable.
//	CancelledAt  – set once on cancellation.
type Reservation struct {
	ID           string     `json:"id"`
	RemoteID     string     `json:"remote_id,omitempty"`
	Departure    Departure  `json:"departure"`
	DepartureKey string     `json:"departure_key"`
	HolderEmail  string     `json:"holder_email"`
	HolderName   string     `json:"holder_name"`
	Seats        []Seat     `json:"seats"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// Live reports whether the reservation still holds its seats.
func (r Reservation) Live() bool { return r.Status == StatusConfirmed }

// NormalizeEmail canonicalizes a holder email for comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
