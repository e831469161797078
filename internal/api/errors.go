package api

import (
	"errors"
	"net/http"

	"agrimarket-ledger/internal/ledger"

	"github.com/gin-gonic/gin"
)

// statusForError maps ledger error kinds to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrConflictingSettlement),
		errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrConcurrencyConflict),
		errors.Is(err, ledger.ErrEmailTaken),
		errors.Is(err, ledger.ErrCropReferenced):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrAmountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
