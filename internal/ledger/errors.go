package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"agrimarket-ledger/internal/store"
)

// Error kinds surfaced to callers. Handlers match with errors.Is to pick
// a status code; nothing is silently swallowed.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrAmountMismatch        = errors.New("amount does not match order total")
	ErrConflictingSettlement = errors.New("conflicting settlement")
	ErrConcurrencyConflict   = errors.New("lost concurrent update, retry")
	ErrInsufficientFunds     = errors.New("insufficient wallet balance")
	ErrEmailTaken            = errors.New("email already registered")
	ErrCropReferenced        = errors.New("crop referenced by open orders")
	ErrTimeout               = errors.New("store operation timed out")
)

// mapStoreError translates store-level failures into ledger error kinds.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, store.ErrStatusConflict):
		return ErrConcurrencyConflict
	case errors.Is(err, store.ErrSettlementConflict):
		return ErrConflictingSettlement
	case errors.Is(err, store.ErrWalletInsufficient):
		return ErrInsufficientFunds
	default:
		return err
	}
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505). Callers decide which constraint it means; the user
// table's only unique column is email, the orders table's is the
// idempotency key.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
