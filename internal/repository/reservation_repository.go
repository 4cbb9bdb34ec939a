package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// ReservationRepo is the booking ledger: an append-mostly record of every
// reservation ever made.  Reservations are stored in the reservations table
// and their seats in reservation_seats.  Rows are never deleted and seat sets
// are never rewritten; the only in-place update is the Confirmed -> Cancelled
// flip.  Every mutation runs in its own transaction and is committed before
// the method returns, so the next availability check (possibly from another
// client sharing the database) observes it.  Timestamps are stored as UTC
// unix microseconds.
type ReservationRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{db: db, now: time.Now}
}

const reservationColumns = `id, remote_id, departure_key, departure_id, from_city, to_city,
	travel_date, travel_time, price, holder_email, holder_name, status, created_at, cancelled_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append records a new Confirmed reservation.  It returns ErrConflict when
// the id is already present.  The ledger does not re-validate seat
// availability: the booking service is the only writer and checks first.
func (r *ReservationRepo) Append(ctx context.Context, res *model.Reservation) error {
	created, err := r.TryCommit(ctx, res)
	if err != nil {
		return err
	}
	if !created {
		return ErrConflict
	}
	return nil
}

// TryCommit inserts res unless a reservation with the same id already
// exists, in which case it returns false and leaves the ledger untouched.
// Missing DepartureKey, Status and CreatedAt are filled in on res.
//
// The availability check that precedes TryCommit runs outside this
// transaction (check-then-act); this is the one place to tighten that into a
// compare-and-swap on departure key and seat set.
func (r *ReservationRepo) TryCommit(ctx context.Context, res *model.Reservation) (bool, error) {
	if res == nil || strings.TrimSpace(res.ID) == "" {
		return false, errors.New("reservation id is required")
	}
	seats := model.UniqueSeats(res.Seats)
	if len(seats) == 0 {
		return false, errors.New("reservation has no seats")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE id = ?`, res.ID).Scan(&n); err != nil {
		return false, unavailable(err)
	}
	if n > 0 {
		return false, nil
	}

	if res.DepartureKey == "" {
		res.DepartureKey = model.Identify(res.Departure)
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = r.now()
	}
	res.CreatedAt = res.CreatedAt.UTC().Truncate(time.Microsecond)
	res.HolderEmail = model.NormalizeEmail(res.HolderEmail)
	res.Status = model.StatusConfirmed
	res.CancelledAt = nil
	res.Seats = seats

	const ins = `INSERT INTO reservations (id, remote_id, departure_key, departure_id, from_city, to_city,
		travel_date, travel_time, price, holder_email, holder_name, status, created_at, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`
	d := res.Departure
	if _, err := tx.ExecContext(ctx, ins,
		res.ID, res.RemoteID, res.DepartureKey, d.ID, d.From, d.To,
		d.Date, d.Time, d.Price, res.HolderEmail, res.HolderName, string(res.Status),
		res.CreatedAt.UnixMicro(),
	); err != nil {
		return false, unavailable(err)
	}

	query := `INSERT INTO reservation_seats (reservation_id, seat_row, seat_col) VALUES `
	args := make([]any, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, res.ID, s.Row, s.Col)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, unavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return false, unavailable(err)
	}
	committed = true
	return true, nil
}

// Get returns one reservation by id.  ErrNotFoundOrForbidden is returned
// when no such reservation exists.
func (r *ReservationRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
	return r.getOne(ctx, r.db, id)
}

// FindByDeparture returns every reservation, in any status, recorded under
// the given departure key, oldest first.
func (r *ReservationRepo) FindByDeparture(ctx context.Context, key string) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE departure_key = ?
	      ORDER BY created_at ASC, id ASC`
	return r.list(ctx, q, key)
}

// FindByHolder returns all reservations of a holder, most recent first.
// When the holder has none, an empty slice is returned.
func (r *ReservationRepo) FindByHolder(ctx context.Context, email string) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE holder_email = ?
	      ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, model.NormalizeEmail(email))
}

// Cancel flips a reservation to Cancelled and stamps cancelled_at.  The
// requester must be the holder; otherwise, or when the id is unknown,
// ErrNotFoundOrForbidden is returned and nothing changes.  Cancelling an
// already cancelled reservation returns it unchanged.
func (r *ReservationRepo) Cancel(ctx context.Context, id, requesterEmail string) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var holder, status string
	err = tx.QueryRowContext(ctx, `SELECT holder_email, status FROM reservations WHERE id = ?`, id).Scan(&holder, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, unavailable(err)
	}
	if holder != model.NormalizeEmail(requesterEmail) {
		return nil, ErrNotFoundOrForbidden
	}

	if model.Status(status) == model.StatusConfirmed {
		const upd = `UPDATE reservations SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`
		stamp := r.now().UTC().UnixMicro()
		if _, err := tx.ExecContext(ctx, upd, string(model.StatusCancelled), stamp, id, string(model.StatusConfirmed)); err != nil {
			return nil, unavailable(err)
		}
	}

	res, err := r.getOne(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}
	committed = true
	return res, nil
}

func (r *ReservationRepo) getOne(ctx context.Context, q queryer, id string) (*model.Reservation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, unavailable(err)
	}
	list := []model.Reservation{res}
	if err := loadSeats(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	// release the connection before the seat query; sqlite runs with one
	_ = rows.Close()
	if err := loadSeats(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var res model.Reservation
	var status string
	var createdAt int64
	var cancelledAt sql.NullInt64
	err := s.Scan(
		&res.ID, &res.RemoteID, &res.DepartureKey, &res.Departure.ID, &res.Departure.From, &res.Departure.To,
		&res.Departure.Date, &res.Departure.Time, &res.Departure.Price, &res.HolderEmail, &res.HolderName,
		&status, &createdAt, &cancelledAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	res.Status = model.Status(status)
	res.CreatedAt = time.UnixMicro(createdAt).UTC()
	if cancelledAt.Valid {
		t := time.UnixMicro(cancelledAt.Int64).UTC()
		res.CancelledAt = &t
	}
	res.Seats = []model.Seat{}
	return res, nil
}

// loadSeats populates seats for all reservations in a single query.
func loadSeats(ctx context.Context, q queryer, list []model.Reservation) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[string]int, len(list))
	ids := make([]any, 0, len(list))
	placeholders := make([]string, 0, len(list))
	for i, res := range list {
		index[res.ID] = i
		ids = append(ids, res.ID)
		placeholders = append(placeholders, "?")
	}
	seatQuery := `SELECT reservation_id, seat_row, seat_col
	              FROM reservation_seats
	              WHERE reservation_id IN (` + strings.Join(placeholders, ",") + `)
	              ORDER BY reservation_id, seat_row, seat_col`
	rows, err := q.QueryContext(ctx, seatQuery, ids...)
	if err != nil {
		return unavailable(err)
	}
	defer rows.Close()
	for rows.Next() {
		var rid string
		var s model.Seat
		if err := rows.Scan(&rid, &s.Row, &s.Col); err != nil {
			return unavailable(err)
		}
		if i, ok := index[rid]; ok {
			list[i].Seats = append(list[i].Seats, s)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
}
