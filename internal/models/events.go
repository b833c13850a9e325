package models

import "time"

// Event types
const (
	EventTypeListingActivated   = "LISTING_ACTIVATED"
	EventTypeListingExpired     = "LISTING_EXPIRED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeFeaturedPromoted   = "FEATURED_PROMOTED"
	EventTypeWagerPlaced        = "WAGER_PLACED"
	EventTypeWagerSettled       = "WAGER_SETTLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingActivatedEvent published when a webhook confirms payment and a
// listing goes ACTIVE.
type ListingActivatedEvent struct {
	BaseEvent
	ListingID        int64           `json:"listing_id"`
	UserID           int64           `json:"user_id"`
	Category         ListingCategory `json:"category"`
	PaymentReference string          `json:"payment_reference"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// ListingExpiredEvent published when a read path writes back an expiry.
type ListingExpiredEvent struct {
	BaseEvent
	ListingID int64 `json:"listing_id"`
	UserID    int64 `json:"user_id"`
}

// OrderStatusChangedEvent published after every service order transition.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	ListingID  int64  `json:"listing_id"`
	BuyerID    int64  `json:"buyer_id"`
	SellerID   int64  `json:"seller_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// FeaturedPromotedEvent published when a queue entry takes the featured slot.
type FeaturedPromotedEvent struct {
	BaseEvent
	EntryID   int64     `json:"entry_id"`
	UserID    int64     `json:"user_id"`
	Forced    bool      `json:"forced"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WagerPlacedEvent published when a bet is accepted and the stake debited.
type WagerPlacedEvent struct {
	BaseEvent
	WagerID     int64 `json:"wager_id"`
	UserID      int64 `json:"user_id"`
	ProjectID   int64 `json:"project_id"`
	StakeTokens int64 `json:"stake_tokens"`
	HouseFee    int64 `json:"house_fee_tokens"`
	NetStake    int64 `json:"net_stake_tokens"`
}

// WagerSettledEvent published when a pending wager resolves.
type WagerSettledEvent struct {
	BaseEvent
	WagerID      int64  `json:"wager_id"`
	UserID       int64  `json:"user_id"`
	Outcome      string `json:"outcome"`
	PayoutTokens int64  `json:"payout_tokens"`
}

// Notification is a fire-and-forget request handed to the delivery worker.
// Delivery failure never rolls back the transition that produced it.
type Notification struct {
	UserID  int64  `json:"user_id"`
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notification kinds
const (
	NotifyListingActivated = "listing_activated"
	NotifyOrderUpdate      = "order_update"
	NotifyFeaturedLive     = "featured_live"
	NotifyWagerSettled     = "wager_settled"
)
