package service

import (
	"context"
	"fmt"
	"time"

	"builders-core/config"
	"builders-core/internal/models"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// ListingService owns the paid-listing lifecycle: draft creation, checkout
// initiation, webhook-driven activation and lazy expiry.
type ListingService struct {
	store    ListingStore
	checkout CheckoutClient
	effects  Effects
	business config.BusinessConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(store ListingStore, checkout CheckoutClient, effects Effects, business config.BusinessConfig) *ListingService {
	return &ListingService{
		store:    store,
		checkout: checkout,
		effects:  effects,
		business: business,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// CreateListingRequest represents a request to create a listing
type CreateListingRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	Category   string `json:"category" binding:"required"`
	Title      string `json:"title" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"required,min=1"`
}

// Create inserts a new DRAFT listing.
func (s *ListingService) Create(ctx context.Context, req *CreateListingRequest) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Create")
	defer span.End()

	switch models.ListingCategory(req.Category) {
	case models.CategoryLocalListing, models.CategoryAdvertisement, models.CategoryServiceListing:
	default:
		return nil, fmt.Errorf("%w: unknown category %q", models.ErrValidation, req.Category)
	}
	if req.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", models.ErrValidation)
	}

	listing := &models.Listing{
		UserID:     req.UserID,
		Category:   models.ListingCategory(req.Category),
		Title:      req.Title,
		PriceCents: req.PriceCents,
		Status:     models.ListingStatusDraft,
	}
	if err := s.store.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	util.ListingsCreatedTotal.WithLabelValues(req.Category).Inc()
	s.logger.Info("Listing created",
		zap.Int64("listing_id", listing.ID),
		zap.String("category", req.Category))
	return listing, nil
}

// BeginCheckout moves an owned DRAFT listing to PENDING_PAYMENT, creating the
// provider session first and storing its id on the row. A repeat submission
// against an already-pending listing is a no-op success.
func (s *ListingService) BeginCheckout(ctx context.Context, listingID, userID int64) (*CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.BeginCheckout")
	defer span.End()

	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != userID {
		return nil, models.ErrUnauthorized
	}

	if listing.Status == models.ListingStatusPendingPayment {
		// Duplicate submission; hand back the session already minted.
		if listing.CheckoutSession != nil {
			return &CheckoutSession{SessionID: *listing.CheckoutSession}, models.ErrAlreadyProcessed
		}
		return nil, models.ErrAlreadyProcessed
	}
	if listing.Status != models.ListingStatusDraft {
		return nil, models.ErrInvalidTransition
	}

	session, err := s.checkout.CreateSession(ctx, string(listing.Category), listing.ID, listing.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	applied, err := s.store.BeginListingCheckout(ctx, listingID, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to begin checkout: %w", err)
	}
	if !applied {
		// Lost a race with another submission; hand back the winner's session.
		current, err := s.store.GetListingByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.ListingStatusPendingPayment && current.CheckoutSession != nil {
			return &CheckoutSession{SessionID: *current.CheckoutSession}, models.ErrAlreadyProcessed
		}
		return nil, models.ErrAlreadyProcessed
	}

	s.logger.Info("Listing checkout started",
		zap.Int64("listing_id", listingID),
		zap.String("session_id", session.SessionID))
	return session, nil
}

// ActivateListing applies the webhook's payment confirmation:
// PENDING_PAYMENT -> ACTIVE with both timestamps and the payment reference in
// one conditional update. Duplicate deliveries surface ErrAlreadyProcessed
// and leave activated_at/expires_at untouched.
func (s *ListingService) ActivateListing(ctx context.Context, listingID int64, paymentRef string) error {
	ctx, span := util.StartSpan(ctx, "ListingService.ActivateListing")
	defer span.End()

	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.business.ListingDuration(string(listing.Category)))

	applied, err := s.store.ActivateListing(ctx, listingID, paymentRef, now, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to activate listing: %w", err)
	}
	if !applied {
		current, err := s.store.GetListingByID(ctx, listingID)
		if err != nil {
			return err
		}
		switch current.Status {
		case models.ListingStatusActive, models.ListingStatusExpired:
			return models.ErrAlreadyProcessed
		default:
			return models.ErrInvalidTransition
		}
	}

	listing.Status = models.ListingStatusActive
	listing.PaymentReference = &paymentRef
	listing.ActivatedAt = &now
	listing.ExpiresAt = &expiresAt

	util.ListingsActivatedTotal.WithLabelValues(string(listing.Category)).Inc()
	s.logger.Info("Listing activated",
		zap.Int64("listing_id", listingID),
		zap.Time("expires_at", expiresAt))

	s.effects.ListingActivated(ctx, listing, paymentRef)
	return nil
}

// Get returns a listing, lazily writing back EXPIRED when its window has
// lapsed. The returned row always reflects the post-expiry state.
func (s *ListingService) Get(ctx context.Context, listingID int64) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Get")
	defer span.End()

	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if listing.ExpiredBy(now) {
		applied, err := s.store.ExpireListing(ctx, listingID, now)
		if err != nil {
			s.logger.Error("Failed to write back listing expiry",
				zap.Int64("listing_id", listingID), zap.Error(err))
		}
		listing.Status = models.ListingStatusExpired
		if applied {
			util.ListingsExpiredTotal.Inc()
			s.effects.ListingExpired(ctx, listing)
		}
	}

	return listing, nil
}

// ListByUser returns a user's listings with the same lazy expiry as Get.
func (s *ListingService) ListByUser(ctx context.Context, userID int64) ([]models.Listing, error) {
	listings, err := s.store.GetListingsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for i := range listings {
		if listings[i].ExpiredBy(now) {
			applied, err := s.store.ExpireListing(ctx, listings[i].ID, now)
			if err != nil {
				s.logger.Error("Failed to write back listing expiry",
					zap.Int64("listing_id", listings[i].ID), zap.Error(err))
			}
			listings[i].Status = models.ListingStatusExpired
			if applied {
				util.ListingsExpiredTotal.Inc()
				s.effects.ListingExpired(ctx, &listings[i])
			}
		}
	}
	return listings, nil
}

// Cancel cancels an owned listing that has not been activated.
func (s *ListingService) Cancel(ctx context.Context, listingID, userID int64) error {
	applied, err := s.store.CancelListing(ctx, listingID, userID)
	if err != nil {
		return err
	}
	if !applied {
		listing, err := s.store.GetListingByID(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.UserID != userID {
			return models.ErrUnauthorized
		}
		return models.ErrInvalidTransition
	}
	s.logger.Info("Listing cancelled", zap.Int64("listing_id", listingID))
	return nil
}

// Delete removes an owned listing and, via cascade, its orders.
func (s *ListingService) Delete(ctx context.Context, listingID, userID int64) error {
	applied, err := s.store.DeleteListing(ctx, listingID, userID)
	if err != nil {
		return err
	}
	if !applied {
		listing, err := s.store.GetListingByID(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.UserID != userID {
			return models.ErrUnauthorized
		}
		return models.ErrNotFound
	}
	s.logger.Info("Listing deleted", zap.Int64("listing_id", listingID))
	return nil
}
