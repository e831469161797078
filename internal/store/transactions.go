package store

import (
	"context"
	"errors"
	"fmt"

	"agrimarket-ledger/internal/models"
)

var (
	// ErrSettlementConflict is returned when a transaction is already in a
	// different terminal state, or another transaction already completed
	// for the same order.
	ErrSettlementConflict = errors.New("conflicting settlement")

	// ErrWalletInsufficient is returned when the buyer's balance cannot
	// cover the settled amount.
	ErrWalletInsufficient = errors.New("insufficient wallet balance")
)

// SettlementResult describes the outcome of a settlement attempt.
type SettlementResult struct {
	Transaction *models.Transaction
	Order       *models.Order
	// Applied is true when this call performed the terminal transition.
	// False means the transaction was already settled with the same
	// outcome and nothing was mutated.
	Applied bool
	// OrderCancelled is true when a failed settlement cancelled the order
	// and restored its reserved stock.
	OrderCancelled bool
}

// CreateTransaction inserts a new pending transaction
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, order_id, amount, payment_method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, txn, query,
		txn.UserID, txn.OrderID, txn.Amount, txn.PaymentMethod, txn.Status)
}

// GetTransactionByID retrieves a transaction by ID
func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn, "SELECT * FROM transactions WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransactionsByUserID retrieves a user's transactions in creation order
func (s *Store) GetTransactionsByUserID(ctx context.Context, userID int64) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.SelectContext(ctx, &txns,
		"SELECT * FROM transactions WHERE user_id = $1 ORDER BY created_at", userID)
	return txns, err
}

// GetTransactionsByOrderID retrieves all transactions tied to an order
func (s *Store) GetTransactionsByOrderID(ctx context.Context, orderID int64) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.SelectContext(ctx, &txns,
		"SELECT * FROM transactions WHERE order_id = $1 ORDER BY created_at", orderID)
	return txns, err
}

// SettleTransactionTx moves a transaction to a terminal state and applies
// its one-time financial side effect, all in one database transaction.
//
// The transaction row is locked FOR UPDATE for the duration, which
// serializes concurrent settlement attempts: the loser of the race sees
// the terminal state the winner wrote and either no-ops (same outcome) or
// fails with ErrSettlementConflict (different outcome).
//
// On the first transition to completed the buyer wallet is debited and
// each farmer credited their pro-rata share; on the first transition to
// failed the order is cancelled and its reserved quantity restored. A
// rollback leaves no partial mutation.
func (s *Store) SettleTransactionTx(ctx context.Context, txnID int64, outcome, providerTxID string) (*SettlementResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var txn models.Transaction
	err = tx.GetContext(ctx, &txn,
		"SELECT * FROM transactions WHERE id = $1 FOR UPDATE", txnID)
	if err != nil {
		return nil, err
	}

	// Idempotent replay: already settled with the same outcome.
	if txn.Status == outcome {
		return &SettlementResult{Transaction: &txn, Applied: false}, nil
	}
	if txn.Status != models.TxStatusPending {
		return nil, fmt.Errorf("transaction %d already %s: %w", txn.ID, txn.Status, ErrSettlementConflict)
	}

	var order models.Order
	err = tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", txn.OrderID)
	if err != nil {
		return nil, err
	}

	result := &SettlementResult{Applied: true}

	switch outcome {
	case models.TxStatusCompleted:
		var alreadyCompleted bool
		err = tx.GetContext(ctx, &alreadyCompleted, `
			SELECT EXISTS(
				SELECT 1 FROM transactions
				WHERE order_id = $1 AND status = $2 AND id <> $3
			)`, order.ID, models.TxStatusCompleted, txn.ID)
		if err != nil {
			return nil, err
		}
		if alreadyCompleted {
			return nil, fmt.Errorf("order %d already has a completed transaction: %w", order.ID, ErrSettlementConflict)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = NOW()
			WHERE id = $2 AND wallet_balance >= $1`,
			txn.Amount, order.BuyerID)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, fmt.Errorf("buyer %d cannot cover %d: %w", order.BuyerID, txn.Amount, ErrWalletInsufficient)
		}

		shares := models.SplitSettlement(txn.Amount, len(order.FarmerIDs))
		for i, farmerID := range order.FarmerIDs {
			_, err = tx.ExecContext(ctx, `
				UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = NOW()
				WHERE id = $2`,
				shares[i], farmerID)
			if err != nil {
				return nil, err
			}
		}

	case models.TxStatusFailed:
		// A failed settlement releases the reservation — unless a sibling
		// transaction already completed for this order. The order is paid
		// then: this transaction still flips to failed, but cancelling the
		// order would strand the buyer's committed debit and put sold
		// stock back on sale.
		var paid bool
		err = tx.GetContext(ctx, &paid, `
			SELECT EXISTS(
				SELECT 1 FROM transactions
				WHERE order_id = $1 AND status = $2 AND id <> $3
			)`, order.ID, models.TxStatusCompleted, txn.ID)
		if err != nil {
			return nil, err
		}

		// The order may also already be cancelled through the status
		// endpoint, in which case the stock was restored there and
		// nothing more is owed.
		if !paid && (order.Status == models.OrderStatusPending || order.Status == models.OrderStatusConfirmed) {
			err = tx.GetContext(ctx, &order, `
				UPDATE orders SET status = $1, updated_at = NOW()
				WHERE id = $2
				RETURNING *`, models.OrderStatusCancelled, order.ID)
			if err != nil {
				return nil, err
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE crops
				SET quantity = quantity + $1, version = version + 1, updated_at = NOW()
				WHERE id = $2`,
				order.Quantity, order.CropID)
			if err != nil {
				return nil, err
			}
			result.OrderCancelled = true
		}

	default:
		return nil, fmt.Errorf("invalid settlement outcome %q", outcome)
	}

	err = tx.GetContext(ctx, &txn, `
		UPDATE transactions SET status = $1, provider_tx_id = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING *`, outcome, providerTxID, txn.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result.Transaction = &txn
	result.Order = &order
	return result, nil
}
