package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func openLedger(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(path))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	return db
}

func newTestRepo(t *testing.T) *ReservationRepo {
	t.Helper()
	db := openLedger(t, filepath.Join(t.TempDir(), "ledger.db"))
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationRepo(db)
}

var mumbaiDelhi = model.Departure{From: "Mumbai", To: "Delhi", Date: "2024-12-15", Time: "22:00", Price: 850}

func newReservation(id, email string, seats ...model.Seat) *model.Reservation {
	return &model.Reservation{
		ID:          id,
		Departure:   mumbaiDelhi,
		HolderEmail: email,
		HolderName:  "Test Holder",
		Seats:       seats,
	}
}

func TestTryCommit_FillsDefaultsAndPersists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res := newReservation("BK-1", " Alice@X.com ", model.Seat{Row: 0, Col: 1}, model.Seat{Row: 0, Col: 0}, model.Seat{Row: 0, Col: 1})
	created, err := repo.TryCommit(ctx, res)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice@x.com", res.HolderEmail)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Equal(t, "Mumbai-Delhi-2024-12-15-22:00", res.DepartureKey)
	assert.False(t, res.CreatedAt.IsZero())

	got, err := repo.Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, res.DepartureKey, got.DepartureKey)
	assert.Equal(t, mumbaiDelhi, got.Departure)
	assert.Equal(t, []model.Seat{{Row: 0, Col: 0}, {Row: 0, Col: 1}}, got.Seats)
	assert.True(t, res.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.CancelledAt)
}

func TestTryCommit_SameIDTwiceKeepsOneEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.TryCommit(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 0, Col: 0}))
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.TryCommit(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 3, Col: 3}))
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repo.FindByDeparture(ctx, mumbaiDelhi.Key())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []model.Seat{{Row: 0, Col: 0}}, all[0].Seats)
}

func TestAppend_DuplicateIsConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 0, Col: 0})))
	err := repo.Append(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 0, Col: 0}))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTryCommit_RejectsIncompleteReservation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.TryCommit(ctx, newReservation("", "alice@x.com", model.Seat{}))
	assert.Error(t, err)
	_, err = repo.TryCommit(ctx, newReservation("BK-2", "alice@x.com"))
	assert.Error(t, err)
}

func TestFindByDeparture_MatchesNormalizedKeyAndAllStatuses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := newReservation("BK-1", "alice@x.com", model.Seat{Row: 0, Col: 0})
	b := newReservation("BK-2", "bob@x.com", model.Seat{Row: 1, Col: 1})
	b.Departure.Date = "12/15/2024"
	b.Departure.Time = "10:00 PM"
	other := newReservation("BK-3", "bob@x.com", model.Seat{Row: 0, Col: 0})
	other.Departure.To = "Agra"
	for _, r := range []*model.Reservation{a, b, other} {
		require.NoError(t, repo.Append(ctx, r))
	}
	_, err := repo.Cancel(ctx, "BK-1", "alice@x.com")
	require.NoError(t, err)

	got, err := repo.FindByDeparture(ctx, mumbaiDelhi.Key())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BK-1", got[0].ID)
	assert.Equal(t, model.StatusCancelled, got[0].Status)
	assert.Equal(t, "BK-2", got[1].ID)
}

func TestFindByHolder_MostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"BK-old", "BK-mid", "BK-new"} {
		r := newReservation(id, "alice@x.com", model.Seat{Row: i, Col: 0})
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Append(ctx, r))
	}
	require.NoError(t, repo.Append(ctx, newReservation("BK-bob", "bob@x.com", model.Seat{Row: 3, Col: 3})))

	got, err := repo.FindByHolder(ctx, "ALICE@x.com")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "BK-new", got[0].ID)
	assert.Equal(t, "BK-mid", got[1].ID)
	assert.Equal(t, "BK-old", got[2].ID)

	none, err := repo.FindByHolder(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCancel_Ownership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 0, Col: 0})))

	_, err := repo.Cancel(ctx, "BK-1", "bob@x.com")
	assert.ErrorIs(t, err, ErrNotFoundOrForbidden)
	got, err := repo.Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Nil(t, got.CancelledAt)

	_, err = repo.Cancel(ctx, "BK-missing", "alice@x.com")
	assert.ErrorIs(t, err, ErrNotFoundOrForbidden)
}

func TestCancel_StampsOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 0, Col: 0})))

	stamp := time.Date(2024, 12, 2, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return stamp }
	first, err := repo.Cancel(ctx, "BK-1", "Alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, first.Status)
	require.NotNil(t, first.CancelledAt)
	assert.True(t, stamp.Equal(*first.CancelledAt))
	assert.Equal(t, []model.Seat{{Row: 0, Col: 0}}, first.Seats)

	repo.now = func() time.Time { return stamp.Add(time.Hour) }
	second, err := repo.Cancel(ctx, "BK-1", "alice@x.com")
	require.NoError(t, err)
	assert.True(t, stamp.Equal(*second.CancelledAt))
}

func TestLedger_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	db := openLedger(t, path)
	require.NoError(t, NewReservationRepo(db).Append(ctx, newReservation("BK-1", "alice@x.com", model.Seat{Row: 2, Col: 1})))
	require.NoError(t, db.Close())

	db = openLedger(t, path)
	defer db.Close()
	got, err := NewReservationRepo(db).Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, []model.Seat{{Row: 2, Col: 1}}, got.Seats)
}

func TestLedger_ClosedDatabaseIsUnavailable(t *testing.T) {
	db := openLedger(t, filepath.Join(t.TempDir(), "ledger.db"))
	repo := NewReservationRepo(db)
	require.NoError(t, db.Close())

	_, err := repo.FindByDeparture(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	_, err = repo.TryCommit(context.Background(), newReservation("BK-1", "alice@x.com", model.Seat{}))
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
}
