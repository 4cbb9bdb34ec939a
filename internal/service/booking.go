package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Ledger is the reservation store the booking service writes to.  It is
// implemented by repository.ReservationRepo.
type Ledger interface {
	ReservationFinder
	TryCommit(ctx context.Context, res *model.Reservation) (bool, error)
	Get(ctx context.Context, id string) (*model.Reservation, error)
	FindByHolder(ctx context.Context, email string) ([]model.Reservation, error)
	Cancel(ctx context.Context, id, requesterEmail string) (*model.Reservation, error)
}

// DepartureSearcher lists the buses running on a route and date.
type DepartureSearcher interface {
	Buses(ctx context.Context, source, destination, date string) ([]model.Departure, error)
}

// BookingStore is the remote booking API.  Create returns the id the remote
// side assigned.
type BookingStore interface {
	Create(ctx context.Context, res *model.Reservation) (string, error)
}

// Notifier reports booking results to the holder.  Implementations capture
// their own failures in the returned result.
type Notifier interface {
	NotifyConfirmed(ctx context.Context, res *model.Reservation) model.NotifyResult
	NotifyFailed(ctx context.Context, notice model.FailureNotice) model.NotifyResult
}

// Options tune the booking service.  Zero values take defaults.
type Options struct {
	// StrictAvailability fails bookings when the search collaborator or the
	// ledger read cannot be reached.  When false those checks are skipped
	// with a warning.
	StrictAvailability bool
	// Timeout bounds every collaborator call (default 10s).
	Timeout time.Duration
	// Rows and Cols bound seat coordinates (default 4x4).
	Rows, Cols int

	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Rows <= 0 {
		o.Rows = 4
	}
	if o.Cols <= 0 {
		o.Cols = 4
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewLocalID
	}
	return o
}

// NewLocalID returns an id for reservations committed without a remote id.
// Ledger ids always carry the "BK-" prefix; ids assigned by the remote
// booking API are kept in Reservation.RemoteID only.
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

const localIDPrefix = "BK-"

// ledgerID maps a client-supplied reservation id into the local id space.
func ledgerID(clientID string) string {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || strings.HasPrefix(clientID, localIDPrefix) {
		return clientID
	}
	return localIDPrefix + clientID
}

// sameBooking reports whether prior records the departure and seat set of a
// new request.
func sameBooking(prior *model.Reservation, key string, seats []model.Seat) bool {
	if prior.DepartureKey != key {
		return false
	}
	have := model.UniqueSeats(prior.Seats)
	if len(have) != len(seats) {
		return false
	}
	set := make(map[model.Seat]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, s := range seats {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// BookingRequest is one booking attempt.  Departure and Seats select what
// to book.  A request with neither but with a route and date is a search.
type BookingRequest struct {
	// ReservationID makes retries idempotent; empty lets the service assign
	// one.  It is stored with a "BK-" prefix unless it already has one.
	ReservationID string           `json:"reservation_id,omitempty"`
	Source        string           `json:"source,omitempty"`
	Destination   string           `json:"destination,omitempty"`
	Date          string           `json:"date,omitempty"`
	HolderEmail   string           `json:"email"`
	HolderName    string           `json:"name"`
	Departure     *model.Departure `json:"departure,omitempty"`
	Seats         []model.Seat     `json:"seats,omitempty"`
}

func (r BookingRequest) searchOnly() bool {
	return r.Departure == nil && len(r.Seats) == 0 &&
		strings.TrimSpace(r.Source) != "" && strings.TrimSpace(r.Destination) != "" && strings.TrimSpace(r.Date) != ""
}

// BookingService runs the booking flow: departure check, seat check, commit
// and notification, in that order.  search, store and notifier may be nil;
// a nil search skips the departure check and a nil store commits locally.
type BookingService struct {
	ledger   Ledger
	resolver *Resolver
	search   DepartureSearcher
	store    BookingStore
	notifier Notifier
	opts     Options
	log      *zap.Logger
}

func NewBookingService(ledger Ledger, search DepartureSearcher, store BookingStore, notifier Notifier, opts Options, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		ledger:   ledger,
		resolver: NewResolver(ledger),
		search:   search,
		store:    store,
		notifier: notifier,
		opts:     opts.withDefaults(),
		log:      logger,
	}
}

// Strict reports whether infrastructure failures fail bookings.
func (s *BookingService) Strict() bool { return s.opts.StrictAvailability }

// Book runs one booking attempt to a terminal state.  It never returns an
// error directly; failures are carried by the Outcome.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) Outcome {
	out := Outcome{State: StateRequested}

	if req.searchOnly() {
		return s.searchOnly(ctx, req)
	}
	dep, seats, err := s.validate(req)
	if err != nil {
		return failed(out, err)
	}
	email := model.NormalizeEmail(req.HolderEmail)
	key := dep.Key()
	notice := model.FailureNotice{HolderEmail: email, HolderName: req.HolderName, Departure: dep, Seats: seats}
	log := s.log.With(zap.String("departure_key", key), zap.String("holder", email))

	id := ledgerID(req.ReservationID)
	if id != "" {
		if prior, err := s.ledger.Get(ctx, id); err == nil {
			if model.NormalizeEmail(prior.HolderEmail) != email {
				return failed(out, invalid("reservation id %q is already in use", id))
			}
			if !sameBooking(prior, key, seats) {
				return failed(out, invalid("reservation id %q was used for a different departure or seats", id))
			}
			log.Info("booking replayed", zap.String("reservation_id", id))
			return Outcome{Success: true, State: StateNotified, Message: msgBooked, Booking: prior, Replayed: true}
		}
	}

	// Requested -> DepartureChecked
	if s.search != nil {
		buses, err := s.findBuses(ctx, dep.From, dep.To, dep.Date)
		switch {
		case err != nil && s.opts.StrictAvailability:
			log.Error("departure search failed", zap.Error(err))
			return s.fail(ctx, out, err, notice)
		case err != nil:
			log.Warn("departure search unavailable, continuing unchecked", zap.Error(err))
			out.warn("departure search unavailable: " + err.Error())
		case len(buses) == 0:
			return s.fail(ctx, out, ErrNoDepartures, notice)
		}
	}
	out.State = StateDepartureChecked

	// DepartureChecked -> SeatsChecked
	check, err := s.resolver.CheckSeats(ctx, key, seats, email)
	switch {
	case err != nil && s.opts.StrictAvailability:
		log.Error("seat availability check failed", zap.Error(err))
		return s.fail(ctx, out, err, notice)
	case err != nil:
		log.Warn("seat availability check unavailable, continuing unchecked", zap.Error(err))
		out.warn("seat availability check unavailable: " + err.Error())
	case !check.Available:
		out.Conflicts = check.Conflicts
		return s.fail(ctx, out, &SeatConflictError{Seats: check.Conflicts}, notice)
	}
	out.State = StateSeatsChecked

	// SeatsChecked -> Committed
	res := &model.Reservation{
		ID:           id,
		Departure:    dep,
		DepartureKey: key,
		HolderEmail:  email,
		HolderName:   req.HolderName,
		Seats:        seats,
		CreatedAt:    s.opts.Now(),
	}
	if s.store != nil {
		remoteID, err := s.createRemote(ctx, res)
		if err != nil {
			log.Warn("remote booking store failed, committing locally", zap.Error(err))
			out.warn("remote booking store unavailable, saved locally: " + err.Error())
		} else {
			res.RemoteID = remoteID
		}
	}
	if res.ID == "" {
		res.ID = s.opts.NewID()
	}
	created, err := s.ledger.TryCommit(ctx, res)
	if err != nil {
		log.Error("ledger commit failed", zap.String("reservation_id", res.ID), zap.Error(err))
		return s.fail(ctx, out, fmt.Errorf("%w: %w", ErrCommitFailure, err), notice)
	}
	if !created {
		// only a retry of the caller's own id with the same content is a replay
		prior, err := s.ledger.Get(ctx, res.ID)
		if err != nil || id == "" || model.NormalizeEmail(prior.HolderEmail) != email || !sameBooking(prior, key, seats) {
			log.Error("reservation id already recorded", zap.String("reservation_id", res.ID))
			return s.fail(ctx, out, fmt.Errorf("%w: reservation id %q already recorded", ErrCommitFailure, res.ID), notice)
		}
		out.Success, out.State, out.Message, out.Booking, out.Replayed = true, StateNotified, msgBooked, prior, true
		return out
	}
	out.State = StateCommitted
	out.Booking = res
	log.Info("booking committed", zap.String("reservation_id", res.ID), zap.Strings("seats", model.SeatLabels(seats)))

	// Committed -> Notified
	result := s.notifyConfirmed(ctx, res)
	if !result.Success {
		log.Warn("confirmation notification failed", zap.String("reservation_id", res.ID), zap.String("error", result.Error))
	}
	out.Notified = &result
	out.Success = true
	out.State = StateNotified
	out.Message = msgBooked
	return out
}

// Cancel cancels a reservation on behalf of its holder.
func (s *BookingService) Cancel(ctx context.Context, id, email string) Outcome {
	out := Outcome{State: StateRequested}
	id = strings.TrimSpace(id)
	email = model.NormalizeEmail(email)
	if id == "" || email == "" {
		return failed(out, invalid("reservation id and holder email are required"))
	}

	res, err := s.ledger.Cancel(ctx, id, email)
	if err != nil {
		notice := model.FailureNotice{HolderEmail: email, Reason: msgNotOwned}
		if !errors.Is(err, repository.ErrNotFoundOrForbidden) {
			notice.Reason = err.Error()
		}
		s.log.Warn("cancel failed", zap.String("reservation_id", id), zap.String("holder", email), zap.Error(err))
		out = failed(out, err)
		if errors.Is(err, repository.ErrNotFoundOrForbidden) {
			out.Message = msgNotOwned
		}
		result := s.notifyFailed(ctx, notice)
		out.Notified = &result
		return out
	}
	s.log.Info("booking cancelled", zap.String("reservation_id", id), zap.String("holder", email))
	return Outcome{Success: true, State: StateCancelled, Message: msgCancelled, Booking: res}
}

// ListByHolder returns the holder's reservations, most recent first.
func (s *BookingService) ListByHolder(ctx context.Context, email string) ([]model.Reservation, error) {
	if model.NormalizeEmail(email) == "" {
		return nil, invalid("holder email is required")
	}
	return s.ledger.FindByHolder(ctx, email)
}

// Get returns one reservation by id.
func (s *BookingService) Get(ctx context.Context, id string) (*model.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("reservation id is required")
	}
	return s.ledger.Get(ctx, strings.TrimSpace(id))
}

// CheckSeats answers an availability question without booking.
func (s *BookingService) CheckSeats(ctx context.Context, dep model.Departure, seats []model.Seat, email string) (SeatCheck, error) {
	if err := s.checkGrid(seats); err != nil {
		return SeatCheck{}, err
	}
	return s.resolver.CheckSeats(ctx, dep.Key(), seats, email)
}

// Occupied lists the seats of a departure held by anyone but excludeEmail.
func (s *BookingService) Occupied(ctx context.Context, dep model.Departure, excludeEmail string) ([]model.Seat, error) {
	return s.resolver.Occupied(ctx, dep.Key(), excludeEmail)
}

// SearchDepartures queries the search collaborator.
func (s *BookingService) SearchDepartures(ctx context.Context, source, destination, date string) ([]model.Departure, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(destination) == "" || strings.TrimSpace(date) == "" {
		return nil, invalid("source, destination and date are required")
	}
	if s.search == nil {
		return nil, fmt.Errorf("departure search: %w: not configured", ErrCollaboratorUnavailable)
	}
	return s.findBuses(ctx, source, destination, date)
}

func (s *BookingService) searchOnly(ctx context.Context, req BookingRequest) Outcome {
	out := Outcome{State: StateRequested}
	notice := model.FailureNotice{
		HolderEmail: model.NormalizeEmail(req.HolderEmail),
		HolderName:  req.HolderName,
		Departure:   model.Departure{From: strings.TrimSpace(req.Source), To: strings.TrimSpace(req.Destination), Date: strings.TrimSpace(req.Date)},
	}
	buses, err := s.SearchDepartures(ctx, req.Source, req.Destination, req.Date)
	switch {
	case err != nil && s.opts.StrictAvailability:
		s.log.Error("departure search failed", zap.Error(err))
		return s.fail(ctx, out, err, notice)
	case err != nil:
		// nothing to list, the holder may still book a known departure
		s.log.Warn("departure search unavailable", zap.Error(err))
		out.warn("departure search unavailable: " + err.Error())
		out.Success = true
		out.State = StateDepartureChecked
		out.Message = msgSelectBus
		return out
	case len(buses) == 0:
		return s.fail(ctx, out, ErrNoDepartures, notice)
	}
	return Outcome{
		Success: true,
		State:   StateDepartureChecked,
		Message: fmt.Sprintf("Found %d buses", len(buses)),
		Buses:   buses,
	}
}

func (s *BookingService) validate(req BookingRequest) (model.Departure, []model.Seat, error) {
	if model.NormalizeEmail(req.HolderEmail) == "" {
		return model.Departure{}, nil, invalid("holder email is required")
	}
	if req.Departure == nil && len(req.Seats) == 0 {
		return model.Departure{}, nil, invalid("departure and seats are required")
	}
	if req.Departure == nil {
		return model.Departure{}, nil, invalid("departure is required")
	}
	seats := model.UniqueSeats(req.Seats)
	if len(seats) == 0 {
		return model.Departure{}, nil, invalid("at least one seat must be selected")
	}
	if err := s.checkGrid(seats); err != nil {
		return model.Departure{}, nil, err
	}

	dep := *req.Departure
	if strings.TrimSpace(dep.From) == "" {
		dep.From = strings.TrimSpace(req.Source)
	}
	if strings.TrimSpace(dep.To) == "" {
		dep.To = strings.TrimSpace(req.Destination)
	}
	if strings.TrimSpace(dep.Date) == "" {
		dep.Date = strings.TrimSpace(req.Date)
	}
	return dep, seats, nil
}

func (s *BookingService) checkGrid(seats []model.Seat) error {
	for _, seat := range seats {
		if seat.Row < 0 || seat.Col < 0 || seat.Row >= s.opts.Rows || seat.Col >= s.opts.Cols {
			return invalid("seat row=%d col=%d is outside the %dx%d layout", seat.Row, seat.Col, s.opts.Rows, s.opts.Cols)
		}
	}
	return nil
}

func (s *BookingService) findBuses(ctx context.Context, source, destination, date string) ([]model.Departure, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	buses, err := s.search.Buses(ctx, source, destination, date)
	if err != nil {
		return nil, collaboratorError("departure search", err)
	}
	return buses, nil
}

func (s *BookingService) createRemote(ctx context.Context, res *model.Reservation) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	id, err := s.store.Create(ctx, res)
	if err != nil {
		return "", collaboratorError("remote booking", err)
	}
	if strings.TrimSpace(id) == "" {
		return "", collaboratorError("remote booking", errors.New("response carried no id"))
	}
	return id, nil
}

// fail ends the flow and sends a best-effort failure notification.
func (s *BookingService) fail(ctx context.Context, out Outcome, err error, notice model.FailureNotice) Outcome {
	out = failed(out, err)
	notice.Reason = out.Message
	result := s.notifyFailed(ctx, notice)
	out.Notified = &result
	return out
}

func (s *BookingService) notifyConfirmed(ctx context.Context, res *model.Reservation) (result model.NotifyResult) {
	if s.notifier == nil {
		return model.NotifyResult{Error: "no notifier configured"}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()
	defer s.recoverNotify(&result)
	return s.notifier.NotifyConfirmed(ctx, res)
}

func (s *BookingService) notifyFailed(ctx context.Context, notice model.FailureNotice) (result model.NotifyResult) {
	if s.notifier == nil {
		return model.NotifyResult{Error: "no notifier configured"}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()
	defer s.recoverNotify(&result)
	return s.notifier.NotifyFailed(ctx, notice)
}

func (s *BookingService) recoverNotify(result *model.NotifyResult) {
	if r := recover(); r != nil {
		s.log.Error("notifier panicked", zap.Any("panic", r))
		*result = model.NotifyResult{Error: fmt.Sprintf("notifier panic: %v", r)}
	}
}
