package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

var (
	// ErrValidation marks a request rejected before any side effect.
	ErrValidation = errors.New("invalid booking request")
	// ErrSeatConflict marks seats already held by another holder.  The
	// concrete error is a *SeatConflictError.
	ErrSeatConflict = errors.New("seat conflict")
	// ErrNoDepartures is returned when the search collaborator answered but
	// knows no bus for the route and date.
	ErrNoDepartures = errors.New("no departures for route and date")
	// ErrCollaboratorTimeout and ErrCollaboratorUnavailable classify failures
	// of the search and remote booking collaborators.
	ErrCollaboratorTimeout     = errors.New("collaborator timeout")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrCommitFailure means the reservation could not be written to the ledger.
	ErrCommitFailure = errors.New("booking commit failed")
)

// SeatConflictError lists the requested seats that another holder already
// holds, in request order.
type SeatConflictError struct {
	Seats []model.Seat
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("Seats %s are already booked by another user", model.FormatSeatLabels(e.Seats))
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// Reason is the stable, machine-readable failure code carried by an Outcome.
type Reason string

const (
	ReasonValidation              Reason = "validation"
	ReasonSeatConflict            Reason = "seat_conflict"
	ReasonNoDepartures            Reason = "no_departures"
	ReasonCollaboratorTimeout     Reason = "collaborator_timeout"
	ReasonCollaboratorUnavailable Reason = "collaborator_unavailable"
	ReasonLedgerUnavailable       Reason = "ledger_unavailable"
	ReasonNotFoundOrForbidden     Reason = "not_found_or_forbidden"
	ReasonCommitFailure           Reason = "commit_failure"
)

// ReasonOf maps an error onto its Reason.  Unknown errors are reported as
// commit failures since they can only surface from the commit step.
func ReasonOf(err error) Reason {
	switch {
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrSeatConflict):
		return ReasonSeatConflict
	case errors.Is(err, ErrNoDepartures):
		return ReasonNoDepartures
	case errors.Is(err, ErrCommitFailure):
		return ReasonCommitFailure
	case errors.Is(err, repository.ErrNotFoundOrForbidden):
		return ReasonNotFoundOrForbidden
	case errors.Is(err, repository.ErrLedgerUnavailable):
		return ReasonLedgerUnavailable
	case errors.Is(err, ErrCollaboratorTimeout):
		return ReasonCollaboratorTimeout
	case errors.Is(err, ErrCollaboratorUnavailable):
		return ReasonCollaboratorUnavailable
	default:
		return ReasonCommitFailure
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// collaboratorError classifies a search or remote-store failure as a timeout
// or a plain outage.
func collaboratorError(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
