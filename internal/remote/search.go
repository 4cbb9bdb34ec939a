package remote

import (
	"context"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

type searchRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type wireBus struct {
	ID    any    `json:"id"`
	OID   any    `json:"_id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Price any    `json:"price"`
}

// SearchClient asks the bus search service which departures run on a route
// and date.
type SearchClient struct {
	c client
}

func NewSearchClient(url string, timeout time.Duration) *SearchClient {
	return &SearchClient{c: newClient(url, timeout)}
}

// Buses posts {source, destination, date} and returns the "buses" array.  A
// missing array is an empty result.
func (s *SearchClient) Buses(ctx context.Context, source, destination, date string) ([]model.Departure, error) {
	var resp struct {
		Buses []wireBus `json:"buses"`
	}
	if err := s.c.postJSON(ctx, searchRequest{Source: source, Destination: destination, Date: date}, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Departure, 0, len(resp.Buses))
	for _, b := range resp.Buses {
		id := idString(b.ID)
		if id == "" {
			id = idString(b.OID)
		}
		out = append(out, model.Departure{
			ID:    id,
			From:  b.From,
			To:    b.To,
			Date:  b.Date,
			Time:  b.Time,
			Price: toFloat(b.Price),
		})
	}
	return out, nil
}
