// Package repository defines error types that are reused across the ledger
// storage layer. These sentinel values allow higher layers such as the
// booking service and HTTP handlers to distinguish between failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFoundOrForbidden is returned when a reservation does not exist or
// belongs to a different holder.  The two cases are deliberately merged so
// that callers cannot probe for other holders' reservation ids.  Handlers
// translate this into an HTTP 404 response.
var ErrNotFoundOrForbidden = errors.New("reservation not found or not owned by requester")

// ErrConflict is returned by Append when a reservation with the same id is
// already recorded.
var ErrConflict = errors.New("conflict")

// ErrLedgerUnavailable wraps every storage failure (connection, query,
// commit).  Callers decide whether to degrade or fail.
var ErrLedgerUnavailable = errors.New("ledger unavailable")
