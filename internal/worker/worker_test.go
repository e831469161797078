package worker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"agrimarket-ledger/internal/ledger"
)

func TestRetryableSettlementError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"conflicting settlement", ledger.ErrConflictingSettlement, false},
		{"transaction not found", ledger.ErrNotFound, false},
		{"insufficient funds", ledger.ErrInsufficientFunds, false},
		{"wrapped conflict", fmt.Errorf("transaction 7: %w", ledger.ErrConflictingSettlement), false},
		{"timeout", ledger.ErrTimeout, true},
		{"db outage", errors.New("pq: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, retryableSettlementError(tt.err))
		})
	}
}
