package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// BookingHandler exposes the booking service over HTTP.  Holders identify
// themselves by email; there is no session.
type BookingHandler struct {
	svc *service.BookingService
	log *zap.Logger
}

func NewBookingHandler(svc *service.BookingService, logger *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: logger}
}

// Create handles POST /v1/bookings.  The body is a service.BookingRequest
// and the response is always the Outcome.
func (h *BookingHandler) Create(c echo.Context) error {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	out := h.svc.Book(c.Request().Context(), req)
	return c.JSON(outcomeStatus(out, http.StatusCreated), out)
}

// List handles GET /v1/bookings?email=, most recent first.
func (h *BookingHandler) List(c echo.Context) error {
	list, err := h.svc.ListByHolder(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Get handles GET /v1/bookings/:id?email=.  A reservation of another holder
// is reported as not found.
func (h *BookingHandler) Get(c echo.Context) error {
	email := model.NormalizeEmail(c.QueryParam("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	res, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err == nil && res.HolderEmail != email {
		err = repository.ErrNotFoundOrForbidden
	}
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/bookings/:id?email=.
func (h *BookingHandler) Cancel(c echo.Context) error {
	out := h.svc.Cancel(c.Request().Context(), c.Param("id"), c.QueryParam("email"))
	return c.JSON(outcomeStatus(out, http.StatusOK), out)
}

type seatCheckRequest struct {
	Departure model.Departure `json:"departure"`
	Seats     []model.Seat    `json:"seats"`
	Email     string          `json:"email"`
}

// CheckSeats handles POST /v1/seats/check.
func (h *BookingHandler) CheckSeats(c echo.Context) error {
	var req seatCheckRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	check, err := h.svc.CheckSeats(c.Request().Context(), req.Departure, req.Seats, req.Email)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, check)
}

// Occupied handles GET /v1/seats/occupied.  The departure comes from the
// id, from, to, date and time query parameters; seats of email are left
// out so holders see their own seats as selectable.
func (h *BookingHandler) Occupied(c echo.Context) error {
	dep := model.Departure{
		ID:   c.QueryParam("id"),
		From: c.QueryParam("from"),
		To:   c.QueryParam("to"),
		Date: c.QueryParam("date"),
		Time: c.QueryParam("time"),
	}
	seats, err := h.svc.Occupied(c.Request().Context(), dep, c.QueryParam("email"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"departure_key": dep.Key(),
		"seats":         seats,
		"labels":        model.SeatLabels(seats),
	})
}

// Departures handles GET /v1/departures?source&destination&date.
func (h *BookingHandler) Departures(c echo.Context) error {
	buses, err := h.svc.SearchDepartures(c.Request().Context(),
		strings.TrimSpace(c.QueryParam("source")),
		strings.TrimSpace(c.QueryParam("destination")),
		strings.TrimSpace(c.QueryParam("date")))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": buses})
}

func (h *BookingHandler) errorJSON(c echo.Context, err error) error {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": err.Error(), "reason": service.ReasonOf(err)})
}

func outcomeStatus(out service.Outcome, success int) int {
	if out.Success {
		if out.Replayed || out.Booking == nil {
			return http.StatusOK
		}
		return success
	}
	return errorStatus(out.Err)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSeatConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoDepartures), errors.Is(err, repository.ErrNotFoundOrForbidden):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCommitFailure):
		return http.StatusInternalServerError
	case errors.Is(err, repository.ErrLedgerUnavailable),
		errors.Is(err, service.ErrCollaboratorTimeout),
		errors.Is(err, service.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
