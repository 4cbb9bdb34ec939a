package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency answers.  *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a health-check handler.  It answers "ok" with 200 while
// the ledger database responds and 503 otherwise.
func Health(ledger Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ledger != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := ledger.PingContext(ctx); err != nil {
				return c.String(http.StatusServiceUnavailable, "ledger unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
