package ledger

import (
	"context"
	"fmt"
	"time"

	"agrimarket-ledger/internal/broker"
	"agrimarket-ledger/internal/models"
	"agrimarket-ledger/internal/redisclient"
	"agrimarket-ledger/internal/store"
	"agrimarket-ledger/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementService ties each transaction's terminal state to exactly one
// wallet mutation. Settlement is idempotent under at-least-once delivery:
// a provider callback and the payment worker may both attempt it.
type SettlementService struct {
	store  *store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(st *store.Store, redis *redisclient.Client, events *broker.EventPublisher) *SettlementService {
	return &SettlementService{
		store:  st,
		redis:  redis,
		events: events,
		logger: util.GetLogger(),
	}
}

// RecordTransactionRequest represents a request to record a payment
type RecordTransactionRequest struct {
	UserID        int64  `json:"user_id" binding:"required"`
	OrderID       int64  `json:"order_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,min=1"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=razorpay upi stripe"`
}

// RecordTransaction creates a pending transaction for an order. The
// amount must equal the order's frozen total price.
func (s *SettlementService) RecordTransaction(ctx context.Context, req *RecordTransactionRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.RecordTransaction")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", req.OrderID, mapStoreError(err))
	}

	if req.Amount != order.TotalPrice {
		return nil, fmt.Errorf("amount %d, order total %d: %w", req.Amount, order.TotalPrice, ErrAmountMismatch)
	}

	if _, err := s.store.GetUserByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("user %d: %w", req.UserID, mapStoreError(err))
	}

	// A live transaction already covers this order: return it rather
	// than insert a duplicate, so order-placement replays stay
	// idempotent end to end.
	siblings, err := s.store.GetTransactionsByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order %d transactions: %w", req.OrderID, mapStoreError(err))
	}
	for i := range siblings {
		if siblings[i].Status == models.TxStatusPending || siblings[i].Status == models.TxStatusCompleted {
			s.logger.Info("Order already has a live transaction",
				zap.Int64("order_id", req.OrderID),
				zap.Int64("transaction_id", siblings[i].ID))
			return &siblings[i], nil
		}
	}

	txn := &models.Transaction{
		UserID:        req.UserID,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Status:        models.TxStatusPending,
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", mapStoreError(err))
	}

	util.TransactionsRecordedTotal.Inc()
	s.logger.Info("Transaction recorded",
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("order_id", txn.OrderID),
		zap.Int64("amount", txn.Amount))

	event := &models.TransactionRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransactionRecorded,
			Timestamp: time.Now(),
		},
		TransactionID: txn.ID,
		OrderID:       txn.OrderID,
		UserID:        txn.UserID,
		Amount:        txn.Amount,
		PaymentMethod: txn.PaymentMethod,
	}
	if err := s.events.PublishTransactionRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionRecorded event", zap.Error(err))
	}

	return txn, nil
}

// SettleTransaction drives a transaction to a terminal state. Replaying
// the same outcome is a no-op returning the existing record; a different
// outcome than the terminal state fails with ErrConflictingSettlement.
// First completion debits the buyer and credits the farmers pro-rata;
// first failure cancels the order and restores its reservation.
func (s *SettlementService) SettleTransaction(ctx context.Context, txnID int64, outcome, providerTxID string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.SettleTransaction")
	defer span.End()

	if outcome != models.TxStatusCompleted && outcome != models.TxStatusFailed {
		return nil, fmt.Errorf("outcome %q is not terminal: %w", outcome, ErrInvalidTransition)
	}

	start := time.Now()
	result, err := s.store.SettleTransactionTx(ctx, txnID, outcome, providerTxID)
	util.SettlementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.SettlementsTotal.WithLabelValues(outcome, "error").Inc()
		return nil, fmt.Errorf("transaction %d: %w", txnID, mapStoreError(err))
	}

	if !result.Applied {
		s.logger.Info("Settlement replayed, no-op",
			zap.Int64("transaction_id", txnID),
			zap.String("outcome", outcome))
		util.SettlementsTotal.WithLabelValues(outcome, "replay").Inc()
		return result.Transaction, nil
	}

	util.SettlementsTotal.WithLabelValues(outcome, "applied").Inc()
	s.logger.Info("Transaction settled",
		zap.Int64("transaction_id", txnID),
		zap.String("outcome", outcome),
		zap.Bool("order_cancelled", result.OrderCancelled))

	if result.OrderCancelled && s.redis != nil {
		if err := s.redis.ReleaseStock(ctx, result.Order.CropID, result.Order.Quantity); err != nil {
			s.logger.Error("Failed to release stock gate after failed settlement",
				zap.Int64("crop_id", result.Order.CropID), zap.Error(err))
		}
	}

	event := &models.TransactionSettledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransactionSettled,
			Timestamp: time.Now(),
		},
		TransactionID: result.Transaction.ID,
		OrderID:       result.Transaction.OrderID,
		CropID:        result.Order.CropID,
		Outcome:       outcome,
		Amount:        result.Transaction.Amount,
	}
	if err := s.events.PublishTransactionSettled(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionSettled event", zap.Error(err))
	}

	return result.Transaction, nil
}

// GetUserTransactions retrieves a user's transactions in creation order
func (s *SettlementService) GetUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, mapStoreError(err))
	}

	txns, err := s.store.GetTransactionsByUserID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return txns, nil
}
