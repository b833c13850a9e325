package models

import "time"

// ListingCategory selects the paid visibility window for a listing.
type ListingCategory string

const (
	CategoryLocalListing   ListingCategory = "local_listing"
	CategoryAdvertisement  ListingCategory = "advertisement"
	CategoryServiceListing ListingCategory = "service_listing"
)

// Listing statuses
const (
	ListingStatusDraft          = "DRAFT"
	ListingStatusPendingPayment = "PENDING_PAYMENT"
	ListingStatusActive         = "ACTIVE"
	ListingStatusExpired        = "EXPIRED"
	ListingStatusCancelled      = "CANCELLED"
)

// Listing represents a paid entitlement: a local classified, an ad slot or a
// service listing. Activation is driven exclusively by the payment webhook.
type Listing struct {
	ID               int64           `db:"id" json:"id"`
	UserID           int64           `db:"user_id" json:"user_id"`
	Category         ListingCategory `db:"category" json:"category"`
	Title            string          `db:"title" json:"title"`
	PriceCents       int64           `db:"price_cents" json:"price_cents"`
	Status           string          `db:"status" json:"status"`
	CheckoutSession  *string         `db:"checkout_session" json:"checkout_session,omitempty"`
	PaymentReference *string         `db:"payment_reference" json:"payment_reference,omitempty"`
	ActivatedAt      *time.Time      `db:"activated_at" json:"activated_at,omitempty"`
	ExpiresAt        *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// ExpiredBy reports whether an ACTIVE listing's window has lapsed at the
// given instant. Reads treat such rows as expired before any write-back
// happens.
func (l *Listing) ExpiredBy(now time.Time) bool {
	return l.Status == ListingStatusActive && l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Service order statuses
const (
	OrderStatusPendingAcceptance = "PENDING_ACCEPTANCE"
	OrderStatusAccepted          = "ACCEPTED"
	OrderStatusInProgress        = "IN_PROGRESS"
	OrderStatusDelivered         = "DELIVERED"
	OrderStatusCompleted         = "COMPLETED"
	OrderStatusDisputed          = "DISPUTED"
	OrderStatusCancelled         = "CANCELLED"
	OrderStatusRefunded          = "REFUNDED"
)

// ServiceOrder is a buyer/seller engagement against a service listing,
// escrow-like: it walks a fixed chain and each step belongs to one role.
type ServiceOrder struct {
	ID               int64      `db:"id" json:"id"`
	ListingID        int64      `db:"listing_id" json:"listing_id"`
	BuyerID          int64      `db:"buyer_id" json:"buyer_id"`
	SellerID         int64      `db:"seller_id" json:"seller_id"`
	PriceCents       int64      `db:"price_cents" json:"price_cents"`
	Status           string     `db:"status" json:"status"`
	PaymentReference *string    `db:"payment_reference" json:"payment_reference,omitempty"`
	DeliveredAt      *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Featured queue entry statuses
const (
	FeaturedStatusPendingPayment = "PENDING_PAYMENT"
	FeaturedStatusPaid           = "PAID"
	FeaturedStatusFeatured       = "FEATURED"
	FeaturedStatusCompleted      = "COMPLETED"
)

// FeaturedEntry is a queued candidate for the single featured slot.
// queue_position is assigned once, when payment confirms.
type FeaturedEntry struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"user_id"`
	ProjectName      string     `db:"project_name" json:"project_name"`
	ProjectURL       string     `db:"project_url" json:"project_url"`
	Status           string     `db:"status" json:"status"`
	QueuePosition    *int64     `db:"queue_position" json:"queue_position,omitempty"`
	CheckoutSession  *string    `db:"checkout_session" json:"checkout_session,omitempty"`
	PaymentReference *string    `db:"payment_reference" json:"payment_reference,omitempty"`
	FeaturedAt       *time.Time `db:"featured_at" json:"featured_at,omitempty"`
	ExpiresAt        *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Project is a showcased product whose MRR growth wagers bet on.
type Project struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	MRRCents  int64     `db:"mrr_cents" json:"mrr_cents"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Wager statuses
const (
	WagerStatusPending = "PENDING"
	WagerStatusWon     = "WON"
	WagerStatusLost    = "LOST"
	WagerStatusVoid    = "VOID"
)

// Wager is a token-denominated bet on a project's MRR growth target.
// house_fee + net_stake always reconciles to stake exactly.
type Wager struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	ProjectID     int64     `db:"project_id" json:"project_id"`
	TargetPercent int       `db:"target_percent" json:"target_percent"`
	StakeTokens   int64     `db:"stake_tokens" json:"stake_tokens"`
	HouseFee      int64     `db:"house_fee_tokens" json:"house_fee_tokens"`
	NetStake      int64     `db:"net_stake_tokens" json:"net_stake_tokens"`
	PayoutTokens  int64     `db:"payout_tokens" json:"payout_tokens"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Wallet holds a user's token balance.
type Wallet struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance_tokens" json:"balance_tokens"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is the audit record written in the same transaction as every
// balance mutation.
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Delta     int64     `db:"delta_tokens" json:"delta_tokens"`
	Reason    string    `db:"reason" json:"reason"`
	WagerID   *int64    `db:"wager_id" json:"wager_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Ledger entry reasons
const (
	LedgerReasonWagerStake  = "WAGER_STAKE"
	LedgerReasonWagerPayout = "WAGER_PAYOUT"
	LedgerReasonWagerRefund = "WAGER_REFUND"
	LedgerReasonAdjustment  = "ADJUSTMENT"
)

// ProcessedWebhookEvent records provider event ids for dedupe.
type ProcessedWebhookEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Role of the caller relative to a service order.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)
