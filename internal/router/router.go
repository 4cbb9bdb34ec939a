// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
)

// RegisterRoutes registers the unversioned operational routes.
func RegisterRoutes(e *echo.Echo, ledger handler.Pinger) {
	e.GET("/healthz", handler.Health(ledger))
}

// RegisterBookings registers the /v1 booking API.  limiter wraps the
// writes (booking and cancellation); cache wraps the departure search.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")

	g.GET("/departures", h.Departures, cache)

	g.POST("/bookings", h.Create, limiter)
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.DELETE("/bookings/:id", h.Cancel, limiter)

	// seat map for a departure and ad-hoc availability checks
	g.POST("/seats/check", h.CheckSeats)
	g.GET("/seats/occupied", h.Occupied)
}
