package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"agrimarket-ledger/internal/ledger"

	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ledger.ErrNotFound, http.StatusNotFound},
		{ledger.ErrInvalidTransition, http.StatusConflict},
		{ledger.ErrConflictingSettlement, http.StatusConflict},
		{ledger.ErrInsufficientStock, http.StatusConflict},
		{ledger.ErrConcurrencyConflict, http.StatusConflict},
		{ledger.ErrEmailTaken, http.StatusConflict},
		{ledger.ErrCropReferenced, http.StatusConflict},
		{ledger.ErrAmountMismatch, http.StatusBadRequest},
		{ledger.ErrInsufficientFunds, http.StatusPaymentRequired},
		{ledger.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, statusForError(tc.err), tc.err.Error())
	}
}

func TestStatusForWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("order 42: %s -> %s: %w", "pending", "delivered", ledger.ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, statusForError(wrapped))
}
