package service

import (
	"errors"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// State is a step of the booking flow.  A successful booking ends in
// StateNotified and a successful cancellation in StateCancelled; everything
// else ends in StateFailed.
type State string

const (
	StateRequested        State = "Requested"
	StateDepartureChecked State = "DepartureChecked"
	StateSeatsChecked     State = "SeatsChecked"
	StateCommitted        State = "Committed"
	StateNotified         State = "Notified"
	StateFailed           State = "Failed"
	// StateCancelled ends a successful cancellation.
	StateCancelled State = "Cancelled"
)

const (
	msgBooked    = "Booking confirmed successfully!"
	msgNoBuses   = "No buses available for the selected route and date"
	msgCancelled = "Booking cancelled successfully"
	msgSelectBus = "Buses available. Please select a bus and seats."
	msgNotOwned  = "Booking not found or you do not have permission to cancel it"
)

// Outcome is what every booking and cancellation call returns.  Booking and
// Notified are independent: a committed booking whose notification failed is
// still a success.
type Outcome struct {
	Success   bool                `json:"success"`
	State     State               `json:"state"`
	Reason    Reason              `json:"reason,omitempty"`
	Message   string              `json:"message"`
	Booking   *model.Reservation  `json:"booking,omitempty"`
	Conflicts []model.Seat        `json:"conflicts,omitempty"`
	Buses     []model.Departure   `json:"buses,omitempty"`
	Notified  *model.NotifyResult `json:"notified,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
	Degraded  bool                `json:"degraded"`
	Replayed  bool                `json:"replayed,omitempty"`

	// Err is the error behind a failed outcome.
	Err error `json:"-"`
}

func (o *Outcome) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
	o.Degraded = true
}

func failed(o Outcome, err error) Outcome {
	o.Success = false
	o.State = StateFailed
	o.Reason = ReasonOf(err)
	o.Message = err.Error()
	if errors.Is(err, ErrNoDepartures) {
		o.Message = msgNoBuses
	}
	o.Err = err
	return o
}
