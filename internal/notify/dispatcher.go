// Package notify performs post-commit side effects: domain event publication
// and fire-and-forget notification delivery. Nothing here can roll back a
// state transition; failures are logged and dropped.
package notify

import (
	"context"
	"time"

	"builders-core/internal/broker"
	"builders-core/internal/models"
	"builders-core/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher publishes domain events after a transition commits. Services
// call it last, outside the transaction.
type Dispatcher struct {
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewDispatcher creates a new effect dispatcher.
func NewDispatcher(publisher *broker.EventPublisher) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// ListingActivated emits the activation event for a newly ACTIVE listing.
func (d *Dispatcher) ListingActivated(ctx context.Context, listing *models.Listing, paymentRef string) {
	event := &models.ListingActivatedEvent{
		BaseEvent:        baseEvent(models.EventTypeListingActivated),
		ListingID:        listing.ID,
		UserID:           listing.UserID,
		Category:         listing.Category,
		PaymentReference: paymentRef,
	}
	if listing.ExpiresAt != nil {
		event.ExpiresAt = *listing.ExpiresAt
	}
	if err := d.publisher.PublishListingActivated(ctx, event); err != nil {
		d.logger.Error("Failed to publish ListingActivated event",
			zap.Int64("listing_id", listing.ID), zap.Error(err))
	}
}

// ListingExpired emits the expiry write-back event.
func (d *Dispatcher) ListingExpired(ctx context.Context, listing *models.Listing) {
	event := &models.ListingExpiredEvent{
		BaseEvent: baseEvent(models.EventTypeListingExpired),
		ListingID: listing.ID,
		UserID:    listing.UserID,
	}
	if err := d.publisher.PublishListingExpired(ctx, event); err != nil {
		d.logger.Error("Failed to publish ListingExpired event",
			zap.Int64("listing_id", listing.ID), zap.Error(err))
	}
}

// OrderStatusChanged emits a transition event for a service order.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *models.ServiceOrder, fromStatus string) {
	event := &models.OrderStatusChangedEvent{
		BaseEvent:  baseEvent(models.EventTypeOrderStatusChanged),
		OrderID:    order.ID,
		ListingID:  order.ListingID,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		FromStatus: fromStatus,
		ToStatus:   order.Status,
	}
	if err := d.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		d.logger.Error("Failed to publish OrderStatusChanged event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// FeaturedPromoted emits the promotion event for the featured slot.
func (d *Dispatcher) FeaturedPromoted(ctx context.Context, entry *models.FeaturedEntry, forced bool) {
	event := &models.FeaturedPromotedEvent{
		BaseEvent: baseEvent(models.EventTypeFeaturedPromoted),
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Forced:    forced,
	}
	if entry.ExpiresAt != nil {
		event.ExpiresAt = *entry.ExpiresAt
	}
	if err := d.publisher.PublishFeaturedPromoted(ctx, event); err != nil {
		d.logger.Error("Failed to publish FeaturedPromoted event",
			zap.Int64("entry_id", entry.ID), zap.Error(err))
	}
}

// WagerPlaced emits the placement event for an accepted bet.
func (d *Dispatcher) WagerPlaced(ctx context.Context, wager *models.Wager) {
	event := &models.WagerPlacedEvent{
		BaseEvent:   baseEvent(models.EventTypeWagerPlaced),
		WagerID:     wager.ID,
		UserID:      wager.UserID,
		ProjectID:   wager.ProjectID,
		StakeTokens: wager.StakeTokens,
		HouseFee:    wager.HouseFee,
		NetStake:    wager.NetStake,
	}
	if err := d.publisher.PublishWagerPlaced(ctx, event); err != nil {
		d.logger.Error("Failed to publish WagerPlaced event",
			zap.Int64("wager_id", wager.ID), zap.Error(err))
	}
}

// WagerSettled emits the settlement event for a resolved bet.
func (d *Dispatcher) WagerSettled(ctx context.Context, wager *models.Wager) {
	event := &models.WagerSettledEvent{
		BaseEvent:    baseEvent(models.EventTypeWagerSettled),
		WagerID:      wager.ID,
		UserID:       wager.UserID,
		Outcome:      wager.Status,
		PayoutTokens: wager.PayoutTokens,
	}
	if err := d.publisher.PublishWagerSettled(ctx, event); err != nil {
		d.logger.Error("Failed to publish WagerSettled event",
			zap.Int64("wager_id", wager.ID), zap.Error(err))
	}
}
