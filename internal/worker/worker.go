package worker

import (
	"context"
	"fmt"

	"builders-core/internal/broker"
	"builders-core/internal/models"
	"builders-core/internal/notify"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes domain events and turns them into user-facing
// notifications. Delivery is at-least-once; duplicate notifications are
// acceptable, lost ones are not.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sender       notify.Sender
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, sender notify.Sender) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		sender:   sender,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnListingActivated(w.handleListingActivated)
	eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	eventHandler.OnFeaturedPromoted(w.handleFeaturedPromoted)
	eventHandler.OnWagerSettled(w.handleWagerSettled)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleListingActivated(ctx context.Context, event *models.ListingActivatedEvent) error {
	return w.sender.Send(ctx, models.Notification{
		UserID:  event.UserID,
		Kind:    models.NotifyListingActivated,
		Subject: "Your listing is live",
		Body: fmt.Sprintf("Listing %d is active until %s.",
			event.ListingID, event.ExpiresAt.Format("Jan 2, 2006")),
	})
}

func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	// Both parties hear about every transition.
	for _, userID := range []int64{event.BuyerID, event.SellerID} {
		err := w.sender.Send(ctx, models.Notification{
			UserID:  userID,
			Kind:    models.NotifyOrderUpdate,
			Subject: fmt.Sprintf("Order %d is now %s", event.OrderID, event.ToStatus),
			Body:    fmt.Sprintf("Order %d moved from %s to %s.", event.OrderID, event.FromStatus, event.ToStatus),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *NotificationWorker) handleFeaturedPromoted(ctx context.Context, event *models.FeaturedPromotedEvent) error {
	return w.sender.Send(ctx, models.Notification{
		UserID:  event.UserID,
		Kind:    models.NotifyFeaturedLive,
		Subject: "Your project is featured",
		Body: fmt.Sprintf("Your project holds the featured slot until %s.",
			event.ExpiresAt.Format("Jan 2, 2006")),
	})
}

func (w *NotificationWorker) handleWagerSettled(ctx context.Context, event *models.WagerSettledEvent) error {
	subject := "Your wager lost"
	body := fmt.Sprintf("Wager %d settled as %s.", event.WagerID, event.Outcome)
	if event.PayoutTokens > 0 {
		subject = "Your wager paid out"
		body = fmt.Sprintf("Wager %d settled as %s; %d tokens were credited.",
			event.WagerID, event.Outcome, event.PayoutTokens)
	}
	return w.sender.Send(ctx, models.Notification{
		UserID:  event.UserID,
		Kind:    models.NotifyWagerSettled,
		Subject: subject,
		Body:    body,
	})
}
