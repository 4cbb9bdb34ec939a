package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// ReservationFinder is the read side of the ledger the resolver needs.
type ReservationFinder interface {
	FindByDeparture(ctx context.Context, key string) ([]model.Reservation, error)
}

// SeatCheck is the answer to an availability question.
type SeatCheck struct {
	Available    bool         `json:"available"`
	Conflicts    []model.Seat `json:"conflicts"`
	DepartureKey string       `json:"departure_key"`
}

// Resolver decides whether seats on a departure are free of other holders'
// confirmed claims.  It never degrades: ledger errors are returned wrapped in
// repository.ErrLedgerUnavailable and the caller picks the policy.
type Resolver struct {
	ledger ReservationFinder
}

func NewResolver(ledger ReservationFinder) *Resolver {
	return &Resolver{ledger: ledger}
}

// CheckSeats intersects seats with the seats held by Confirmed reservations
// of holders other than email.  Conflicts keep the order of seats.  An empty
// candidate set is available.
func (r *Resolver) CheckSeats(ctx context.Context, key string, seats []model.Seat, email string) (SeatCheck, error) {
	occupied, err := r.occupiedSet(ctx, key, email)
	if err != nil {
		return SeatCheck{DepartureKey: key}, err
	}
	conflicts := make([]model.Seat, 0)
	for _, s := range model.UniqueSeats(seats) {
		if _, taken := occupied[s]; taken {
			conflicts = append(conflicts, s)
		}
	}
	return SeatCheck{Available: len(conflicts) == 0, Conflicts: conflicts, DepartureKey: key}, nil
}

// Occupied lists the seats held by other holders on a departure, sorted by
// row then column.  An empty excludeEmail lists every live seat.
func (r *Resolver) Occupied(ctx context.Context, key, excludeEmail string) ([]model.Seat, error) {
	set, err := r.occupiedSet(ctx, key, excludeEmail)
	if err != nil {
		return nil, err
	}
	out := make([]model.Seat, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out, nil
}

func (r *Resolver) occupiedSet(ctx context.Context, key, email string) (map[model.Seat]struct{}, error) {
	list, err := r.ledger.FindByDeparture(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrLedgerUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", repository.ErrLedgerUnavailable, err)
	}
	me := model.NormalizeEmail(email)
	occupied := make(map[model.Seat]struct{})
	for _, res := range list {
		if !res.Live() || (me != "" && model.NormalizeEmail(res.HolderEmail) == me) {
			continue
		}
		for _, s := range res.Seats {
			occupied[s] = struct{}{}
		}
	}
	return occupied, nil
}
