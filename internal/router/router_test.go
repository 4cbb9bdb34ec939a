package router

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

func TestRegisterBookings_Routes(t *testing.T) {
	e := echo.New()
	svc := service.NewBookingService(nil, nil, nil, nil, service.Options{}, nil)
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterRoutes(e, nil)
	RegisterBookings(e, handler.NewBookingHandler(svc, nil), noop, noop)

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		http.MethodGet + " /healthz",
		http.MethodGet + " /v1/departures",
		http.MethodPost + " /v1/bookings",
		http.MethodGet + " /v1/bookings",
		http.MethodGet + " /v1/bookings/:id",
		http.MethodDelete + " /v1/bookings/:id",
		http.MethodPost + " /v1/seats/check",
		http.MethodGet + " /v1/seats/occupied",
	} {
		assert.True(t, got[want], want)
	}
}
