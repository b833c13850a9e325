package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"builders-core/internal/models"
	"builders-core/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishListingActivated publishes ListingActivated event
func (ep *EventPublisher) PublishListingActivated(ctx context.Context, event *models.ListingActivatedEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingExpired publishes ListingExpired event
func (ep *EventPublisher) PublishListingExpired(ctx context.Context, event *models.ListingExpiredEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishFeaturedPromoted publishes FeaturedPromoted event
func (ep *EventPublisher) PublishFeaturedPromoted(ctx context.Context, event *models.FeaturedPromotedEvent) error {
	key := fmt.Sprintf("featured-%d", event.EntryID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishWagerPlaced publishes WagerPlaced event
func (ep *EventPublisher) PublishWagerPlaced(ctx context.Context, event *models.WagerPlacedEvent) error {
	key := fmt.Sprintf("wager-%d", event.WagerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishWagerSettled publishes WagerSettled event
func (ep *EventPublisher) PublishWagerSettled(ctx context.Context, event *models.WagerSettledEvent) error {
	key := fmt.Sprintf("wager-%d", event.WagerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered callbacks.
type EventHandler struct {
	onListingActivated   func(context.Context, *models.ListingActivatedEvent) error
	onOrderStatusChanged func(context.Context, *models.OrderStatusChangedEvent) error
	onFeaturedPromoted   func(context.Context, *models.FeaturedPromotedEvent) error
	onWagerSettled       func(context.Context, *models.WagerSettledEvent) error
	logger               *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnListingActivated registers a handler for ListingActivated events
func (eh *EventHandler) OnListingActivated(handler func(context.Context, *models.ListingActivatedEvent) error) {
	eh.onListingActivated = handler
}

// OnOrderStatusChanged registers a handler for OrderStatusChanged events
func (eh *EventHandler) OnOrderStatusChanged(handler func(context.Context, *models.OrderStatusChangedEvent) error) {
	eh.onOrderStatusChanged = handler
}

// OnFeaturedPromoted registers a handler for FeaturedPromoted events
func (eh *EventHandler) OnFeaturedPromoted(handler func(context.Context, *models.FeaturedPromotedEvent) error) {
	eh.onFeaturedPromoted = handler
}

// OnWagerSettled registers a handler for WagerSettled events
func (eh *EventHandler) OnWagerSettled(handler func(context.Context, *models.WagerSettledEvent) error) {
	eh.onWagerSettled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeListingActivated:
		if eh.onListingActivated != nil {
			var event models.ListingActivatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ListingActivated event: %w", err)
			}
			return eh.onListingActivated(ctx, &event)
		}

	case models.EventTypeOrderStatusChanged:
		if eh.onOrderStatusChanged != nil {
			var event models.OrderStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderStatusChanged event: %w", err)
			}
			return eh.onOrderStatusChanged(ctx, &event)
		}

	case models.EventTypeFeaturedPromoted:
		if eh.onFeaturedPromoted != nil {
			var event models.FeaturedPromotedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal FeaturedPromoted event: %w", err)
			}
			return eh.onFeaturedPromoted(ctx, &event)
		}

	case models.EventTypeWagerSettled:
		if eh.onWagerSettled != nil {
			var event models.WagerSettledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal WagerSettled event: %w", err)
			}
			return eh.onWagerSettled(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
