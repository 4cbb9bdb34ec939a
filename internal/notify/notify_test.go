package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func sampleReservation() *model.Reservation {
	return &model.Reservation{
		ID:          "BK-1",
		Departure:   model.Departure{From: "Mumbai", To: "Delhi", Date: "2024-12-15", Time: "22:00", Price: 850},
		HolderEmail: "alice@x.com",
		HolderName:  "Alice",
		Seats:       []model.Seat{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
	}
}

func TestConfirmation(t *testing.T) {
	m := Confirmation(sampleReservation())
	assert.Contains(t, m.Subject, "BK-1")
	assert.Contains(t, m.Text, "Name: Alice")
	assert.Contains(t, m.Text, "Price: 850.00")
	assert.Contains(t, m.Text, "Seat Numbers: A1, A2")
	assert.Contains(t, m.Text, "Booking ID: BK-1")
}

func TestFailure(t *testing.T) {
	m := Failure(model.FailureNotice{
		HolderEmail: "bob@x.com",
		Departure:   model.Departure{From: "Mumbai", To: "Delhi"},
		Reason:      "Seats A2 are already booked by another user",
	})
	assert.Contains(t, m.Text, "Name: N/A")
	assert.Contains(t, m.Text, "Date: N/A")
	assert.Contains(t, m.Text, "Reason: Seats A2 are already booked by another user")
	assert.NotContains(t, m.Text, "Seat Numbers")
}

func TestEmailSink_PostsToAPI(t *testing.T) {
	var got resendEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewEmailSink(srv.URL, "key-1", "Bus Booking <no-reply@example.com>", time.Second, nil)
	res := sink.NotifyConfirmed(context.Background(), sampleReservation())
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, "alice@x.com", got.To)
	assert.Equal(t, "Bus Booking <no-reply@example.com>", got.From)
	assert.Contains(t, got.Text, "Seat Numbers: A1, A2")
}

func TestEmailSink_APIErrorIsCaptured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewEmailSink(srv.URL, "key-1", "from@example.com", time.Second, nil)
	res := sink.NotifyFailed(context.Background(), model.FailureNotice{HolderEmail: "bob@x.com", Reason: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "500")
}

func TestEmailSink_MockWithoutKey(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	sink := NewEmailSink(srv.URL, "", "from@example.com", time.Second, zap.New(core))
	res := sink.NotifyConfirmed(context.Background(), sampleReservation())
	assert.True(t, res.Success)
	assert.Zero(t, hits.Load())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "alice@x.com", logs.All()[0].ContextMap()["to"])
}

func TestEmailSink_NoRecipient(t *testing.T) {
	sink := NewEmailSink("http://unused", "", "from@example.com", time.Second, nil)
	res := sink.NotifyFailed(context.Background(), model.FailureNotice{Reason: "x"})
	assert.False(t, res.Success)
}
