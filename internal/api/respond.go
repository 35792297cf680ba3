package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/centsible-app/centsible/internal/auth"
	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/receipt"
	"github.com/centsible-app/centsible/internal/service"
	"github.com/centsible-app/centsible/internal/storage"
)

// writeError maps a service error onto its HTTP status and writes the JSON
// error body. Unrecognized errors turn into 500s with the detail kept out of
// the response; the request logger still sees the original error.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// statusFor translates the sentinel errors of the lower layers into HTTP
// statuses. Ledger validation failures are the caller's fault (400), while a
// payment the ledger refuses is a well-formed request the current balances
// rule out (422).
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidParticipant),
		errors.Is(err, ledger.ErrNegativeValue),
		errors.Is(err, ledger.ErrOverAllocated),
		errors.Is(err, ledger.ErrNoRemainderTarget),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate), errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNoExistingDebt),
		errors.Is(err, ledger.ErrExceedsDebt),
		errors.Is(err, receipt.ErrNoTotal):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseAmount converts a decimal amount string like "25.50" into minor
// units. Input finer than a minor unit is rejected rather than rounded.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q is finer than a minor unit", s)
	}
	return minor.IntPart(), nil
}

// amountString renders minor units as a decimal string: 2550 -> "25.50".
func amountString(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}
