package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents a marketplace participant (farmer or consumer).
// WalletBalance is held in paise and must never go negative through a
// committed settlement.
type User struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Role          string    `db:"role" json:"role"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Phone         string    `db:"phone" json:"phone,omitempty"`
	WalletBalance int64     `db:"wallet_balance" json:"wallet_balance"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Crop represents a farmer's listing. Quantity is in kilograms and only
// moves through reservation and release; Version is the optimistic
// concurrency token guarding that read-modify-write.
type Crop struct {
	ID           int64     `db:"id" json:"id"`
	FarmerID     int64     `db:"farmer_id" json:"farmer_id"`
	Name         string    `db:"name" json:"name"`
	Quantity     int       `db:"quantity" json:"quantity"`
	UnitPrice    int64     `db:"unit_price" json:"unit_price"`
	QualityGrade string    `db:"quality_grade" json:"quality_grade"`
	ImageURL     string    `db:"image_url" json:"image_url,omitempty"`
	Location     string    `db:"location" json:"location,omitempty"`
	Region       string    `db:"region" json:"region,omitempty"`
	Version      int64     `db:"version" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a crop reservation. TotalPrice is frozen at creation
// time; later unit price changes on the crop do not affect it.
type Order struct {
	ID             int64         `db:"id" json:"id"`
	BuyerID        int64         `db:"buyer_id" json:"buyer_id"`
	CropID         int64         `db:"crop_id" json:"crop_id"`
	FarmerIDs      pq.Int64Array `db:"farmer_ids" json:"farmer_ids"`
	Quantity       int           `db:"quantity" json:"quantity"`
	TotalPrice     int64         `db:"total_price" json:"total_price"`
	Status         string        `db:"status" json:"status"`
	IdempotencyKey string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Transaction represents a payment record tied to an order. At most one
// transaction per order ever reaches completed.
type Transaction struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	OrderID       int64     `db:"order_id" json:"order_id"`
	Amount        int64     `db:"amount" json:"amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Status        string    `db:"status" json:"status"`
	ProviderTxID  string    `db:"provider_tx_id" json:"provider_tx_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Prediction is a cached price/demand estimate keyed by (crop name,
// region). Upserts overwrite fully, no history is retained.
type Prediction struct {
	CropName        string    `db:"crop_name" json:"crop_name"`
	Region          string    `db:"region" json:"region"`
	PredictedPrice  int64     `db:"predicted_price" json:"predicted_price"`
	PredictedDemand int       `db:"predicted_demand" json:"predicted_demand"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleFarmer   = "farmer"
	RoleConsumer = "consumer"
)

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Transaction statuses
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Payment methods
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodUPI      = "upi"
	PaymentMethodStripe   = "stripe"
)

// Quality grades
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
)

// ProcessedEvent for consumer-side idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
