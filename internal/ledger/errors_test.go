package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"agrimarket-ledger/internal/store"
)

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"status conflict", store.ErrStatusConflict, ErrConcurrencyConflict},
		{"settlement conflict", store.ErrSettlementConflict, ErrConflictingSettlement},
		{"wallet insufficient", store.ErrWalletInsufficient, ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapStoreError(tt.in), tt.want)
		})
	}
}

func TestMapStoreErrorPassesThroughUnknown(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, err, mapStoreError(err))
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("failed to create user: %w", unique)))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key value")))
	assert.False(t, isUniqueViolation(nil))
}
