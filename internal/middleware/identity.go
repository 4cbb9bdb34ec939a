package middleware

// identity.go resolves who a request acts for.  Holders are identified by
// email only: the email query parameter on reads and cancellations, or the
// holder header when the email travels in a JSON body.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// HolderHeader lets clients name the holder on requests whose email lives in
// the body, so the rate limiter can key on it.
const HolderHeader = "X-Holder-Email"

// holderOf returns the normalized holder email of a request, or "anon" when
// none is given.
func holderOf(c echo.Context) string {
	email := c.QueryParam("email")
	if email == "" {
		email = c.Request().Header.Get(HolderHeader)
	}
	if email = model.NormalizeEmail(email); email != "" {
		return email
	}
	return "anon"
}
