package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"agrimarket-ledger/internal/broker"
	"agrimarket-ledger/internal/ledger"
	"agrimarket-ledger/internal/models"
	"agrimarket-ledger/internal/redisclient"
	"agrimarket-ledger/internal/store"
	"agrimarket-ledger/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentWorker consumes TransactionRecorded events and drives them to a
// terminal state with a simulated provider outcome. The provider may also
// settle through the HTTP callback; the settlement service's idempotency
// makes the duplicate attempt harmless.
type PaymentWorker struct {
	consumer    *broker.Consumer
	settlements *ledger.SettlementService
	logger      *zap.Logger
	successRate float64
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, settlements *ledger.SettlementService, successRate float64) *PaymentWorker {
	return &PaymentWorker{
		consumer:    consumer,
		settlements: settlements,
		logger:      util.GetLogger(),
		successRate: successRate,
	}
}

// Start starts the payment worker
func (pw *PaymentWorker) Start(ctx context.Context) error {
	log.Println("Starting payment worker...")

	handler := broker.NewEventHandler()
	handler.OnTransactionRecorded(pw.handleRecorded)

	return pw.consumer.StartConsuming(ctx, handler.HandleMessage)
}

// Stop stops the payment worker
func (pw *PaymentWorker) Stop() error {
	log.Println("Stopping payment worker...")
	return pw.consumer.Close()
}

func (pw *PaymentWorker) handleRecorded(ctx context.Context, event *models.TransactionRecordedEvent) error {
	pw.logger.Info("Processing payment",
		zap.Int64("transaction_id", event.TransactionID),
		zap.Int64("order_id", event.OrderID),
		zap.String("method", event.PaymentMethod))

	// Simulated provider latency and outcome.
	time.Sleep(time.Duration(100+rand.Intn(400)) * time.Millisecond)

	outcome := models.TxStatusFailed
	providerTxID := ""
	if rand.Float64() < pw.successRate {
		outcome = models.TxStatusCompleted
		providerTxID = fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
	}

	_, err := pw.settlements.SettleTransaction(ctx, event.TransactionID, outcome, providerTxID)
	if err != nil {
		// Redelivery cannot change a non-retryable outcome, so those are
		// logged and committed. Everything else (DB outage, timeout) is
		// returned uncommitted so Kafka redelivers the event.
		if retryableSettlementError(err) {
			pw.logger.Error("Worker settlement failed, will retry",
				zap.Int64("transaction_id", event.TransactionID),
				zap.Error(err))
			return err
		}
		pw.logger.Warn("Worker settlement did not apply",
			zap.Int64("transaction_id", event.TransactionID),
			zap.Error(err))
	}
	return nil
}

// retryableSettlementError reports whether a settlement failure can
// succeed on redelivery. A conflicting settlement means the HTTP
// callback already won the race, a missing transaction will not appear
// later, and an underfunded wallet stays underfunded until the buyer
// tops up out of band.
func retryableSettlementError(err error) bool {
	switch {
	case errors.Is(err, ledger.ErrConflictingSettlement),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return false
	default:
		return true
	}
}

// MirrorWorker consumes TransactionSettled events and resyncs the Redis
// stock mirror for the affected crop from the authoritative quantity.
// Dedup via processed_events keeps the resync from reprocessing on
// redelivery.
type MirrorWorker struct {
	consumer *broker.Consumer
	store    *store.Store
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewMirrorWorker creates a new mirror worker
func NewMirrorWorker(consumer *broker.Consumer, st *store.Store, redis *redisclient.Client) *MirrorWorker {
	return &MirrorWorker{
		consumer: consumer,
		store:    st,
		redis:    redis,
		logger:   util.GetLogger(),
	}
}

// Start starts the mirror worker
func (mw *MirrorWorker) Start(ctx context.Context) error {
	log.Println("Starting mirror worker...")

	handler := broker.NewEventHandler()
	handler.OnTransactionSettled(mw.handleSettled)

	return mw.consumer.StartConsuming(ctx, handler.HandleMessage)
}

// Stop stops the mirror worker
func (mw *MirrorWorker) Stop() error {
	log.Println("Stopping mirror worker...")
	return mw.consumer.Close()
}

func (mw *MirrorWorker) handleSettled(ctx context.Context, event *models.TransactionSettledEvent) error {
	processed, err := mw.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		mw.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	crop, err := mw.store.GetCropByID(ctx, event.CropID)
	if err != nil {
		return fmt.Errorf("failed to load crop %d: %w", event.CropID, err)
	}

	if err := mw.redis.InitStock(ctx, crop.ID, crop.Quantity); err != nil {
		return fmt.Errorf("failed to resync stock mirror: %w", err)
	}

	if err := mw.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		mw.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	mw.logger.Info("Stock mirror resynced",
		zap.Int64("crop_id", crop.ID),
		zap.Int("quantity", crop.Quantity))
	return nil
}
