package store

import (
	"context"
	"database/sql"
	"errors"

	"agrimarket-ledger/internal/models"
)

// ErrStatusConflict is returned when a guarded status update finds the
// row no longer in the expected state (a concurrent transition won).
var ErrStatusConflict = errors.New("status changed concurrently")

// CreateOrder inserts a new order in pending state
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (buyer_id, crop_id, farmer_ids, quantity, total_price, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.BuyerID, order.CropID, order.FarmerIDs, order.Quantity,
		order.TotalPrice, order.Status, order.IdempotencyKey)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders retrieves all orders, newest first
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, nil if absent
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrderStatus flips an order from one status to another, guarded
// on the expected source state so concurrent transitions cannot both win.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID int64, from, to string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING *`, to, orderID, from)
	if err == sql.ErrNoRows {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrderTx cancels an order and restores its reserved quantity to the
// crop in a single database transaction. Only pending or confirmed orders
// can be cancelled; anything else comes back as ErrStatusConflict.
func (s *Store) CancelOrderTx(ctx context.Context, orderID int64) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
		RETURNING *`,
		models.OrderStatusCancelled, orderID,
		models.OrderStatusPending, models.OrderStatusConfirmed)
	if err == sql.ErrNoRows {
		return nil, ErrStatusConflict
	}
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

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}
