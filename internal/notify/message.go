// Package notify renders booking notifications and delivers them by email
// or to the log.
package notify

import (
	"fmt"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const rule = "----------------------------------------"

// Message is one rendered notification.
type Message struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Confirmation renders the ticket sent after a booking commits.
func Confirmation(res *model.Reservation) Message {
	d := res.Departure
	var b strings.Builder
	b.WriteString("Booking Confirmed!\n\n")
	b.WriteString("Bus Ticket Details:\n" + rule + "\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(res.HolderName))
	fmt.Fprintf(&b, "From: %s\n", orNA(d.From))
	fmt.Fprintf(&b, "To: %s\n", orNA(d.To))
	fmt.Fprintf(&b, "Date: %s\n", orNA(d.Date))
	fmt.Fprintf(&b, "Time: %s\n", orNA(d.Time))
	fmt.Fprintf(&b, "Price: %s\n", price(d.Price))
	fmt.Fprintf(&b, "Seat Numbers: %s\n", model.FormatSeatLabels(res.Seats))
	fmt.Fprintf(&b, "Booking ID: %s\n", orNA(res.ID))
	b.WriteString(rule + "\n\n")
	b.WriteString("Thank you for choosing our service!\nYour booking has been confirmed successfully.")
	return Message{
		Subject: fmt.Sprintf("Booking confirmed: %s to %s [%s]", orNA(d.From), orNA(d.To), res.ID),
		Text:    b.String(),
	}
}

// Failure renders the notice sent when a booking attempt fails.
func Failure(n model.FailureNotice) Message {
	d := n.Departure
	var b strings.Builder
	b.WriteString("Booking Unavailable\n\n")
	b.WriteString("We're sorry, but your booking request could not be completed.\n\n")
	b.WriteString("Booking Details:\n" + rule + "\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(n.HolderName))
	fmt.Fprintf(&b, "From: %s\n", orNA(d.From))
	fmt.Fprintf(&b, "To: %s\n", orNA(d.To))
	fmt.Fprintf(&b, "Date: %s\n", orNA(d.Date))
	fmt.Fprintf(&b, "Time: %s\n", orNA(d.Time))
	if len(n.Seats) > 0 {
		fmt.Fprintf(&b, "Seat Numbers: %s\n", model.FormatSeatLabels(n.Seats))
	}
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Reason: %s\n\n", orNA(n.Reason))
	b.WriteString("Please try selecting a different date, time, or route.\nWe apologize for any inconvenience.")
	return Message{Subject: "Booking unavailable", Text: b.String()}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func price(p float64) string {
	if p == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", p)
}
