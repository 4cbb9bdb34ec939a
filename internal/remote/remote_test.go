package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func TestSearchClient_Buses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, searchRequest{Source: "Mumbai", Destination: "Delhi", Date: "2024-12-15"}, req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"buses":[
			{"id":12,"from":"Mumbai","to":"Delhi","date":"2024-12-15","time":"22:00","price":850},
			{"_id":"66a1","from":"Mumbai","to":"Delhi","date":"2024-12-15","time":"6:30","price":"799.5"}
		]}`))
	}))
	defer srv.Close()

	buses, err := NewSearchClient(srv.URL, time.Second).Buses(context.Background(), "Mumbai", "Delhi", "2024-12-15")
	require.NoError(t, err)
	require.Len(t, buses, 2)
	assert.Equal(t, model.Departure{ID: "12", From: "Mumbai", To: "Delhi", Date: "2024-12-15", Time: "22:00", Price: 850}, buses[0])
	assert.Equal(t, "66a1", buses[1].ID)
	assert.Equal(t, 799.5, buses[1].Price)
}

func TestSearchClient_MissingBusesIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	buses, err := NewSearchClient(srv.URL, time.Second).Buses(context.Background(), "A", "B", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, buses)
}

func TestSearchClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewSearchClient(srv.URL, 50*time.Millisecond).Buses(context.Background(), "A", "B", "2024-01-01")
	require.Error(t, err)
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
}

func TestBookingClient_Create(t *testing.T) {
	var got createRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":6571,"name":"Alice"}`))
	}))
	defer srv.Close()

	res := &model.Reservation{
		HolderName:  "Alice",
		HolderEmail: "alice@x.com",
		Departure:   model.Departure{From: "Mumbai", To: "Delhi", Date: "12/15/2024", Time: "22:00", Price: 850},
		Seats:       []model.Seat{{Row: 0, Col: 1}},
	}
	id, err := NewBookingClient(srv.URL, time.Second).Create(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "6571", id)
	assert.Equal(t, "2024-12-15 00:00:00", got.Date)
	assert.Equal(t, "alice@x.com", got.Email)
	assert.Equal(t, []model.Seat{{Row: 0, Col: 1}}, got.Seats)
}

func TestBookingClient_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Seats already taken"}`))
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).Create(context.Background(), &model.Reservation{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Seats already taken", se.Message)
}

func TestBookingClient_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).Create(context.Background(), &model.Reservation{})
	assert.Error(t, err)
}

func TestRemoteDate(t *testing.T) {
	assert.Equal(t, "2024-12-25 00:00:00", RemoteDate("2024-12-25"))
	assert.Equal(t, "2024-12-25 00:00:00", RemoteDate("December 25, 2024"))
	assert.Equal(t, "someday", RemoteDate("someday"))
}
