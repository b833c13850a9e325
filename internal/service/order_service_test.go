package service

import (
	"context"
	"testing"
	"time"

	"builders-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrderService(store *fakeStore) (*OrderService, *fakeEffects) {
	effects := &fakeEffects{}
	svc := NewOrderService(store, effects)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, effects
}

func seedServiceListing(t *testing.T, store *fakeStore, sellerID int64) *models.Listing {
	t.Helper()
	exp := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	listing := &models.Listing{
		UserID:     sellerID,
		Category:   models.CategoryServiceListing,
		Title:      "Landing page audit",
		PriceCents: 9900,
		Status:     models.ListingStatusActive,
		ExpiresAt:  &exp,
	}
	require.NoError(t, store.CreateListing(context.Background(), listing))
	return listing
}

func TestOrderLifecycleHappyPath(t *testing.T) {
	store := newFakeStore()
	svc, effects := newTestOrderService(store)
	ctx := context.Background()

	listing := seedServiceListing(t, store, 1)
	order, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: listing.ID})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingAcceptance, order.Status)
	assert.Equal(t, int64(1), order.SellerID)
	assert.Equal(t, listing.PriceCents, order.PriceCents)

	order, err = svc.Accept(ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, order.Status)

	order, err = svc.Start(ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, order.Status)

	order, err = svc.Deliver(ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)

	order, err = svc.Complete(ctx, order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)

	assert.Len(t, effects.orderTransitions, 4)
	assert.Equal(t, "DELIVERED->COMPLETED", effects.orderTransitions[3])
}

func TestOrderRejectsOutOfOrderTransition(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	listing := seedServiceListing(t, store, 1)
	order, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: listing.ID})
	require.NoError(t, err)

	// Cannot complete before delivery.
	_, err = svc.Complete(ctx, order.ID, 2)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	// Cannot skip straight to DELIVERED from PENDING_ACCEPTANCE.
	_, err = svc.Deliver(ctx, order.ID, 1)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	got, err := svc.Get(ctx, order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingAcceptance, got.Status)
}

func TestOrderEnforcesRoleOwnership(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	listing := seedServiceListing(t, store, 1)
	order, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: listing.ID})
	require.NoError(t, err)

	// Buyer cannot accept their own order; that's the seller's move.
	_, err = svc.Accept(ctx, order.ID, 2)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// A stranger cannot touch the order at all.
	_, err = svc.Accept(ctx, order.ID, 99)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = svc.Get(ctx, order.ID, 99)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	order, err = svc.Accept(ctx, order.ID, 1)
	require.NoError(t, err)
	order, err = svc.Start(ctx, order.ID, 1)
	require.NoError(t, err)
	order, err = svc.Deliver(ctx, order.ID, 1)
	require.NoError(t, err)

	// Seller cannot sign off on their own delivery.
	_, err = svc.Complete(ctx, order.ID, 1)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Complete(ctx, order.ID, 2)
	require.NoError(t, err)
}

func TestOrderCancelAllowedForBothParties(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	listing := seedServiceListing(t, store, 1)

	buyerOrder, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: listing.ID})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, buyerOrder.ID, 2)
	require.NoError(t, err)

	sellerOrder, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: listing.ID})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, sellerOrder.ID, 1)
	require.NoError(t, err)

	// Terminal: nothing moves out of CANCELLED.
	_, err = svc.Accept(ctx, buyerOrder.ID, 1)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOrderRepeatedTransitionReportsAlreadyProcessed(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	listing := seedServiceListing(t, store, 1)
	order, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: listing.ID})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, order.ID, 1)
	require.NoError(t, err)

	got, err := svc.Accept(ctx, order.ID, 1)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusAccepted, got.Status)
}

func TestOrderCreateValidation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	listing := seedServiceListing(t, store, 1)

	// Buying your own service is rejected.
	_, err := svc.Create(ctx, &CreateOrderRequest{BuyerID: 1, ListingID: listing.ID})
	assert.ErrorIs(t, err, models.ErrValidation)

	// Only ACTIVE service listings take orders.
	draft := &models.Listing{UserID: 1, Category: models.CategoryServiceListing, Title: "x", PriceCents: 100, Status: models.ListingStatusDraft}
	require.NoError(t, store.CreateListing(ctx, draft))
	_, err = svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: draft.ID})
	assert.ErrorIs(t, err, models.ErrValidation)

	// Ads are not orderable services.
	exp := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	ad := &models.Listing{UserID: 1, Category: models.CategoryAdvertisement, Title: "x", PriceCents: 100, Status: models.ListingStatusActive, ExpiresAt: &exp}
	require.NoError(t, store.CreateListing(ctx, ad))
	_, err = svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: ad.ID})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Create(ctx, &CreateOrderRequest{BuyerID: 2, ListingID: 9999})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
