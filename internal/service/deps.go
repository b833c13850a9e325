package service

import (
	"context"
	"time"

	"builders-core/internal/models"
)

// The services consume narrow store contracts so the transition logic is
// testable without a live database. *store.Store satisfies all of them.

// ListingStore persists paid listings.
type ListingStore interface {
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListingByID(ctx context.Context, id int64) (*models.Listing, error)
	GetListingsByUserID(ctx context.Context, userID int64) ([]models.Listing, error)
	BeginListingCheckout(ctx context.Context, listingID int64, sessionID string) (bool, error)
	ActivateListing(ctx context.Context, listingID int64, paymentRef string, activatedAt, expiresAt time.Time) (bool, error)
	ExpireListing(ctx context.Context, listingID int64, now time.Time) (bool, error)
	CancelListing(ctx context.Context, listingID, userID int64) (bool, error)
	DeleteListing(ctx context.Context, listingID, userID int64) (bool, error)
}

// OrderStore persists service orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.ServiceOrder) error
	GetOrderByID(ctx context.Context, id int64) (*models.ServiceOrder, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.ServiceOrder, error)
	TransitionOrder(ctx context.Context, orderID int64, from, to string, deliveredAt *time.Time) (bool, error)
	GetListingByID(ctx context.Context, id int64) (*models.Listing, error)
}

// FeaturedStore persists the featured queue.
type FeaturedStore interface {
	CreateFeaturedEntry(ctx context.Context, entry *models.FeaturedEntry) error
	GetFeaturedEntryByID(ctx context.Context, id int64) (*models.FeaturedEntry, error)
	BeginFeaturedCheckout(ctx context.Context, entryID int64, sessionID string) (bool, error)
	MarkFeaturedPaid(ctx context.Context, entryID int64, paymentRef string) (bool, error)
	GetCurrentFeatured(ctx context.Context, now time.Time) (*models.FeaturedEntry, error)
	CompleteStaleFeatured(ctx context.Context, now time.Time) (int64, error)
	NextQueued(ctx context.Context) (*models.FeaturedEntry, error)
	PromoteFeatured(ctx context.Context, entryID int64, featuredAt, expiresAt time.Time) (bool, error)
	CompleteFeatured(ctx context.Context, entryID int64) (bool, error)
}

// WagerStore persists wagers, wallets and the audit ledger.
type WagerStore interface {
	GetOrCreateWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AdjustBalance(ctx context.Context, userID, delta int64, reason string, wagerID *int64) error
	PlaceWager(ctx context.Context, wager *models.Wager) error
	SettleWager(ctx context.Context, wagerID int64, outcome string, payout int64) (*models.Wager, error)
	GetWagerByID(ctx context.Context, id int64) (*models.Wager, error)
	GetWagersByUserID(ctx context.Context, userID int64) ([]models.Wager, error)
	GetPendingWagersByProject(ctx context.Context, projectID int64) ([]models.Wager, error)
	CreateProject(ctx context.Context, project *models.Project) error
	GetProjectByID(ctx context.Context, id int64) (*models.Project, error)
	GetLedgerByUserID(ctx context.Context, userID int64) ([]models.LedgerEntry, error)
}

// Effects performs post-commit side effects. Implemented by notify.Dispatcher;
// calls never fail the transition that produced them.
type Effects interface {
	ListingActivated(ctx context.Context, listing *models.Listing, paymentRef string)
	ListingExpired(ctx context.Context, listing *models.Listing)
	OrderStatusChanged(ctx context.Context, order *models.ServiceOrder, fromStatus string)
	FeaturedPromoted(ctx context.Context, entry *models.FeaturedEntry, forced bool)
	WagerPlaced(ctx context.Context, wager *models.Wager)
	WagerSettled(ctx context.Context, wager *models.Wager)
}

// FeaturedCache is the soft read-through cache for the featured slot plus the
// lock used by the admin override. Failures fall back to the database.
type FeaturedCache interface {
	GetCachedFeatured(ctx context.Context) (*models.FeaturedEntry, error)
	CacheFeatured(ctx context.Context, entry *models.FeaturedEntry, now time.Time) error
	InvalidateFeatured(ctx context.Context) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (func(), bool, error)
}
