package remote

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// remoteDateLayout is the timestamp format the booking API expects.
const remoteDateLayout = "2006-01-02 15:04:05"

type createRequest struct {
	Name  string       `json:"name"`
	Email string       `json:"email"`
	From  string       `json:"from"`
	To    string       `json:"to"`
	Date  string       `json:"date"`
	Time  string       `json:"time"`
	Price float64      `json:"price"`
	Seats []model.Seat `json:"seats"`
}

// BookingClient stores reservations with the remote booking API.
type BookingClient struct {
	c client
}

func NewBookingClient(url string, timeout time.Duration) *BookingClient {
	return &BookingClient{c: newClient(url, timeout)}
}

// Create posts the reservation and returns the id the API assigned.
func (b *BookingClient) Create(ctx context.Context, res *model.Reservation) (string, error) {
	req := createRequest{
		Name:  res.HolderName,
		Email: res.HolderEmail,
		From:  res.Departure.From,
		To:    res.Departure.To,
		Date:  RemoteDate(res.Departure.Date),
		Time:  res.Departure.Time,
		Price: res.Departure.Price,
		Seats: res.Seats,
	}
	var resp struct {
		ID  any `json:"id"`
		OID any `json:"_id"`
	}
	if err := b.c.postJSON(ctx, req, &resp); err != nil {
		return "", err
	}
	id := idString(resp.ID)
	if id == "" {
		id = idString(resp.OID)
	}
	if id == "" {
		return "", errors.New("booking response has no id")
	}
	return id, nil
}

// RemoteDate renders a departure date as "YYYY-MM-DD 00:00:00".  Dates that
// cannot be parsed are sent as given.
func RemoteDate(date string) string {
	norm := model.NormalizeDate(date)
	t, err := time.Parse("2006-01-02", norm)
	if err != nil {
		return date
	}
	return t.Format(remoteDateLayout)
}
