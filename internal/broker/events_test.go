package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agrimarket-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestHandleMessageRoutesTransactionRecorded(t *testing.T) {
	handler := NewEventHandler()

	var received *models.TransactionRecordedEvent
	handler.OnTransactionRecorded(func(ctx context.Context, e *models.TransactionRecordedEvent) error {
		received = e
		return nil
	})

	event := &models.TransactionRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeTransactionRecorded,
			Timestamp: time.Now(),
		},
		TransactionID: 7,
		OrderID:       42,
		Amount:        25000,
		PaymentMethod: models.PaymentMethodUPI,
	}

	err := handler.HandleMessage(context.Background(), message(t, event))
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, int64(7), received.TransactionID)
	assert.Equal(t, int64(42), received.OrderID)
	assert.Equal(t, models.PaymentMethodUPI, received.PaymentMethod)
}

func TestHandleMessageRoutesTransactionSettled(t *testing.T) {
	handler := NewEventHandler()

	var received *models.TransactionSettledEvent
	handler.OnTransactionSettled(func(ctx context.Context, e *models.TransactionSettledEvent) error {
		received = e
		return nil
	})

	event := &models.TransactionSettledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeTransactionSettled,
			Timestamp: time.Now(),
		},
		TransactionID: 7,
		OrderID:       42,
		CropID:        3,
		Outcome:       models.TxStatusFailed,
	}

	err := handler.HandleMessage(context.Background(), message(t, event))
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, models.TxStatusFailed, received.Outcome)
	assert.Equal(t, int64(3), received.CropID)
}

func TestHandleMessageIgnoresUnregisteredTypes(t *testing.T) {
	handler := NewEventHandler()

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-3",
			EventType: models.EventTypeOrderPlaced,
		},
		OrderID: 42,
	}

	err := handler.HandleMessage(context.Background(), message(t, event))
	assert.NoError(t, err)
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
