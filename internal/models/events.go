package models

import "time"

// Event types
const (
	EventTypeOrderPlaced         = "ORDER_PLACED"
	EventTypeOrderConfirmed      = "ORDER_CONFIRMED"
	EventTypeOrderDelivered      = "ORDER_DELIVERED"
	EventTypeOrderCancelled      = "ORDER_CANCELLED"
	EventTypeTransactionRecorded = "TRANSACTION_RECORDED"
	EventTypeTransactionSettled  = "TRANSACTION_SETTLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when an order reserves stock
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64   `json:"order_id"`
	BuyerID    int64   `json:"buyer_id"`
	CropID     int64   `json:"crop_id"`
	FarmerIDs  []int64 `json:"farmer_ids"`
	Quantity   int     `json:"quantity"`
	TotalPrice int64   `json:"total_price"`
}

// OrderStatusChangedEvent published on confirmed/delivered/cancelled
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	CropID     int64  `json:"crop_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// TransactionRecordedEvent published when a pending transaction is created
type TransactionRecordedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	OrderID       int64  `json:"order_id"`
	UserID        int64  `json:"user_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

// TransactionSettledEvent published when a transaction reaches a terminal
// state. CropID identifies the listing whose mirror may need a resync.
type TransactionSettledEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	OrderID       int64  `json:"order_id"`
	CropID        int64  `json:"crop_id"`
	Outcome       string `json:"outcome"`
	Amount        int64  `json:"amount"`
}
