package service

import (
	"context"
	"fmt"
	"time"

	"builders-core/internal/models"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// OrderService drives the service order chain. Every transition is validated
// against the legal-edge table and the caller's role before the conditional
// update is attempted, so an illegal or unauthorized request never mutates
// persisted state.
type OrderService struct {
	store   OrderStore
	effects Effects
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, effects Effects) *OrderService {
	return &OrderService{
		store:   store,
		effects: effects,
		logger:  util.GetLogger(),
		now:     time.Now,
	}
}

// CreateOrderRequest represents a request to open a service order
type CreateOrderRequest struct {
	BuyerID   int64 `json:"buyer_id" binding:"required"`
	ListingID int64 `json:"listing_id" binding:"required"`
}

// Create opens an order against an ACTIVE service listing. The listing owner
// becomes the seller; buying your own service is rejected.
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest) (*models.ServiceOrder, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Create")
	defer span.End()

	listing, err := s.store.GetListingByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Category != models.CategoryServiceListing {
		return nil, fmt.Errorf("%w: listing %d is not a service listing", models.ErrValidation, req.ListingID)
	}
	if listing.Status != models.ListingStatusActive || listing.ExpiredBy(s.now().UTC()) {
		return nil, fmt.Errorf("%w: listing %d is not active", models.ErrValidation, req.ListingID)
	}
	if listing.UserID == req.BuyerID {
		return nil, fmt.Errorf("%w: cannot order your own service", models.ErrValidation)
	}

	order := &models.ServiceOrder{
		ListingID:  listing.ID,
		BuyerID:    req.BuyerID,
		SellerID:   listing.UserID,
		PriceCents: listing.PriceCents,
		Status:     models.OrderStatusPendingAcceptance,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("listing_id", listing.ID))
	return order, nil
}

// Transition applies one status edge on behalf of a caller. The legality and
// role checks happen first; the write is conditional on the prior status, so
// a concurrent winner leaves the loser with ErrAlreadyProcessed (same target)
// or ErrInvalidTransition (state moved elsewhere).
func (s *OrderService) Transition(ctx context.Context, orderID, userID int64, to string) (*models.ServiceOrder, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Transition")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	role, err := callerRole(order, userID)
	if err != nil {
		util.OrderTransitionsRejectedTotal.WithLabelValues("unauthorized").Inc()
		return nil, err
	}

	// A retried request lands here with the work already done.
	if order.Status == to {
		return order, models.ErrAlreadyProcessed
	}

	if err := models.CanTransitionOrder(order.Status, to, role); err != nil {
		reason := "invalid_transition"
		if err == models.ErrUnauthorized {
			reason = "unauthorized"
		}
		util.OrderTransitionsRejectedTotal.WithLabelValues(reason).Inc()
		return nil, err
	}

	var deliveredAt *time.Time
	if to == models.OrderStatusDelivered {
		t := s.now().UTC()
		deliveredAt = &t
	}

	from := order.Status
	applied, err := s.store.TransitionOrder(ctx, orderID, from, to, deliveredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}
	if !applied {
		current, err := s.store.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.Status == to {
			return current, models.ErrAlreadyProcessed
		}
		util.OrderTransitionsRejectedTotal.WithLabelValues("invalid_transition").Inc()
		return nil, models.ErrInvalidTransition
	}

	order.Status = to
	order.DeliveredAt = deliveredAt

	util.OrderTransitionsTotal.WithLabelValues(to).Inc()
	s.logger.Info("Order transitioned",
		zap.Int64("order_id", orderID),
		zap.String("from", from),
		zap.String("to", to))

	s.effects.OrderStatusChanged(ctx, order, from)
	return order, nil
}

// Accept: seller takes the order.
func (s *OrderService) Accept(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusAccepted)
}

// Start: seller begins work.
func (s *OrderService) Start(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusInProgress)
}

// Deliver: seller hands over the work.
func (s *OrderService) Deliver(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusDelivered)
}

// Complete: buyer signs off.
func (s *OrderService) Complete(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusCompleted)
}

// Dispute: buyer contests a delivery.
func (s *OrderService) Dispute(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusDisputed)
}

// Cancel: either party aborts an early-state order.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusCancelled)
}

// Refund: seller refunds a completed or disputed order.
func (s *OrderService) Refund(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	return s.Transition(ctx, orderID, userID, models.OrderStatusRefunded)
}

// Get retrieves an order visible to one of its parties.
func (s *OrderService) Get(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := callerRole(order, userID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser retrieves orders where the user is a party.
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]models.ServiceOrder, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

func callerRole(order *models.ServiceOrder, userID int64) (models.Role, error) {
	switch userID {
	case order.BuyerID:
		return models.RoleBuyer, nil
	case order.SellerID:
		return models.RoleSeller, nil
	default:
		return "", models.ErrUnauthorized
	}
}
