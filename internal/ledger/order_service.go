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
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// OrderService owns the order lifecycle: atomic check-and-reserve on
// placement, the transition state machine afterwards.
type OrderService struct {
	store              *store.Store
	redis              *redisclient.Client
	events             *broker.EventPublisher
	logger             *zap.Logger
	reserveMaxAttempts int
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	redis *redisclient.Client,
	events *broker.EventPublisher,
	reserveMaxAttempts int,
) *OrderService {
	if reserveMaxAttempts < 1 {
		reserveMaxAttempts = 3
	}
	return &OrderService{
		store:              st,
		redis:              redis,
		events:             events,
		logger:             util.GetLogger(),
		reserveMaxAttempts: reserveMaxAttempts,
	}
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	BuyerID        int64  `json:"buyer_id" binding:"required"`
	CropID         int64  `json:"crop_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	PaymentMethod  string `json:"payment_method" binding:"required,oneof=razorpay upi stripe"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PlaceOrder reserves crop quantity and creates a pending order. The
// reservation is a versioned compare-and-swap against the crop row,
// retried a bounded number of times when a concurrent placement wins the
// race. Total price is computed from the unit price at reservation time
// and frozen on the order.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", mapStoreError(err))
	}
	if existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return existing, nil
	}

	if _, err := s.store.GetUserByID(ctx, req.BuyerID); err != nil {
		return nil, fmt.Errorf("buyer %d: %w", req.BuyerID, mapStoreError(err))
	}

	crop, err := s.store.GetCropByID(ctx, req.CropID)
	if err != nil {
		return nil, fmt.Errorf("crop %d: %w", req.CropID, mapStoreError(err))
	}

	// Fast-reject against the Redis mirror before touching Postgres. A
	// mirror outage degrades to database-only; a refusal is final.
	gateReserved := false
	if s.redis != nil {
		allowed, gateErr := s.redis.ReserveStock(ctx, crop.ID, req.Quantity)
		if gateErr != nil {
			s.logger.Warn("Stock gate unavailable, relying on database reservation",
				zap.Int64("crop_id", crop.ID), zap.Error(gateErr))
		} else if !allowed {
			util.ReservationsRejectedTotal.WithLabelValues("gate_insufficient").Inc()
			return nil, fmt.Errorf("crop %d has %d kg mirrored: %w", crop.ID, crop.Quantity, ErrInsufficientStock)
		} else {
			gateReserved = true
		}
	}

	crop, err = s.reserveWithRetry(ctx, crop, req.Quantity)
	if err != nil {
		if gateReserved {
			s.releaseGate(crop.ID, req.Quantity)
		}
		return nil, err
	}

	order := &models.Order{
		BuyerID:        req.BuyerID,
		CropID:         crop.ID,
		FarmerIDs:      pq.Int64Array{crop.FarmerID},
		Quantity:       req.Quantity,
		TotalPrice:     crop.UnitPrice * int64(req.Quantity),
		Status:         models.OrderStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		// The reservation already happened: hand the quantity back.
		if relErr := s.store.ReleaseCropStock(ctx, crop.ID, req.Quantity); relErr != nil {
			s.logger.Error("Failed to release reservation after create failure",
				zap.Int64("crop_id", crop.ID), zap.Error(relErr))
		}
		if gateReserved {
			s.releaseGate(crop.ID, req.Quantity)
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", mapStoreError(err))
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("crop_id", crop.ID),
		zap.Int("quantity", req.Quantity))

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		CropID:     order.CropID,
		FarmerIDs:  []int64(order.FarmerIDs),
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return order, nil
}

// reserveWithRetry runs the compare-and-swap reservation loop. Each lost
// race re-reads the crop and retries; insufficient quantity at any point
// aborts without mutation.
func (s *OrderService) reserveWithRetry(ctx context.Context, crop *models.Crop, quantity int) (*models.Crop, error) {
	start := time.Now()
	defer func() {
		util.StockReserveLatency.Observe(time.Since(start).Seconds())
	}()

	for attempt := 0; attempt < s.reserveMaxAttempts; attempt++ {
		if crop.Quantity < quantity {
			util.ReservationsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
			return crop, fmt.Errorf("crop %d has %d kg, requested %d: %w",
				crop.ID, crop.Quantity, quantity, ErrInsufficientStock)
		}

		ok, err := s.store.ReserveCropStock(ctx, crop.ID, quantity, crop.Version)
		if err != nil {
			return crop, fmt.Errorf("failed to reserve stock: %w", mapStoreError(err))
		}
		if ok {
			return crop, nil
		}

		util.ReservationConflictsTotal.Inc()
		fresh, err := s.store.GetCropByID(ctx, crop.ID)
		if err != nil {
			return crop, fmt.Errorf("crop %d: %w", crop.ID, mapStoreError(err))
		}
		crop = fresh
	}

	util.ReservationsRejectedTotal.WithLabelValues("conflict").Inc()
	return crop, fmt.Errorf("reservation lost %d races on crop %d: %w",
		s.reserveMaxAttempts, crop.ID, ErrConcurrencyConflict)
}

func (s *OrderService) releaseGate(cropID int64, quantity int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.redis.ReleaseStock(ctx, cropID, quantity); err != nil {
		s.logger.Error("Failed to release stock gate",
			zap.Int64("crop_id", cropID), zap.Error(err))
	}
}

// UpdateOrderStatus applies a lifecycle transition. Confirmation requires
// a payment transaction in pending or completed state; cancellation
// restores the reserved quantity atomically with the status flip.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, target string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, mapStoreError(err))
	}

	if !ValidOrderStatus(target) {
		return nil, fmt.Errorf("unknown status %q: %w", target, ErrInvalidTransition)
	}
	if !CanTransition(order.Status, target) {
		return nil, fmt.Errorf("order %d: %s -> %s: %w", orderID, order.Status, target, ErrInvalidTransition)
	}

	var updated *models.Order
	switch target {
	case models.OrderStatusConfirmed:
		if err := s.requirePayment(ctx, orderID); err != nil {
			return nil, err
		}
		updated, err = s.store.TransitionOrderStatus(ctx, orderID, order.Status, target)

	case models.OrderStatusDelivered:
		updated, err = s.store.TransitionOrderStatus(ctx, orderID, order.Status, target)

	case models.OrderStatusCancelled:
		updated, err = s.store.CancelOrderTx(ctx, orderID)
		if err == nil {
			util.OrdersCancelledTotal.Inc()
			if s.redis != nil {
				s.releaseGate(order.CropID, order.Quantity)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, mapStoreError(err))
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", target))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: statusEventType(target),
			Timestamp: time.Now(),
		},
		OrderID:    orderID,
		CropID:     order.CropID,
		FromStatus: order.Status,
		ToStatus:   target,
	}
	if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish order status event", zap.Error(err))
	}

	return updated, nil
}

// requirePayment enforces the confirmation precondition: some payment
// transaction exists for the order in pending or completed state.
func (s *OrderService) requirePayment(ctx context.Context, orderID int64) error {
	txns, err := s.store.GetTransactionsByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order %d transactions: %w", orderID, mapStoreError(err))
	}
	for _, txn := range txns {
		if txn.Status == models.TxStatusPending || txn.Status == models.TxStatusCompleted {
			return nil
		}
	}
	return fmt.Errorf("order %d has no live payment transaction: %w", orderID, ErrInvalidTransition)
}

func statusEventType(status string) string {
	switch status {
	case models.OrderStatusConfirmed:
		return models.EventTypeOrderConfirmed
	case models.OrderStatusDelivered:
		return models.EventTypeOrderDelivered
	default:
		return models.EventTypeOrderCancelled
	}
}

// GetOrder retrieves an order with its crop resolved read-side
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, *models.Crop, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("order %d: %w", orderID, mapStoreError(err))
	}

	crop, err := s.store.GetCropByID(ctx, order.CropID)
	if err != nil {
		return nil, nil, fmt.Errorf("crop %d: %w", order.CropID, mapStoreError(err))
	}

	return order, crop, nil
}

// ListOrders retrieves all orders, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.GetOrders(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return orders, nil
}

// SyncStockMirror seeds the Redis mirror from authoritative quantities.
// Called at boot and by the resync worker.
func (s *OrderService) SyncStockMirror(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	crops, err := s.store.GetCrops(ctx)
	if err != nil {
		return fmt.Errorf("failed to list crops: %w", mapStoreError(err))
	}

	for _, crop := range crops {
		if err := s.redis.InitStock(ctx, crop.ID, crop.Quantity); err != nil {
			s.logger.Error("Failed to seed stock mirror",
				zap.Int64("crop_id", crop.ID), zap.Error(err))
		}
	}

	s.logger.Info("Stock mirror synced", zap.Int("count", len(crops)))
	return nil
}
