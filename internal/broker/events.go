package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"agrimarket-ledger/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStatusChanged publishes the confirmed/delivered/cancelled events
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishTransactionRecorded publishes TransactionRecorded event
func (ep *EventPublisher) PublishTransactionRecorded(ctx context.Context, event *models.TransactionRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishTransactionSettled publishes TransactionSettled event
func (ep *EventPublisher) PublishTransactionSettled(ctx context.Context, event *models.TransactionSettledEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onTransactionRecorded func(context.Context, *models.TransactionRecordedEvent) error
	onTransactionSettled  func(context.Context, *models.TransactionSettledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnTransactionRecorded registers a handler for TransactionRecorded events
func (eh *EventHandler) OnTransactionRecorded(handler func(context.Context, *models.TransactionRecordedEvent) error) {
	eh.onTransactionRecorded = handler
}

// OnTransactionSettled registers a handler for TransactionSettled events
func (eh *EventHandler) OnTransactionSettled(handler func(context.Context, *models.TransactionSettledEvent) error) {
	eh.onTransactionSettled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeTransactionRecorded:
		if eh.onTransactionRecorded != nil {
			var event models.TransactionRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionRecorded event: %w", err)
			}
			return eh.onTransactionRecorded(ctx, &event)
		}

	case models.EventTypeTransactionSettled:
		if eh.onTransactionSettled != nil {
			var event models.TransactionSettledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionSettled event: %w", err)
			}
			return eh.onTransactionSettled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
