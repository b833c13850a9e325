package models

// orderTransitions is the full legal next-state table for service orders.
// Terminal states map to an empty set.
var orderTransitions = map[string][]string{
	OrderStatusPendingAcceptance: {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted:          {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:        {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:         {OrderStatusCompleted, OrderStatusDisputed},
	OrderStatusCompleted:         {OrderStatusRefunded},
	OrderStatusDisputed:          {OrderStatusRefunded},
	OrderStatusCancelled:         {},
	OrderStatusRefunded:          {},
}

// orderTransitionOwner names the role allowed to drive each target state.
// Cancellation is deliberately absent: either party may cancel an early
// state, which CanTransitionOrder special-cases.
var orderTransitionOwner = map[string]Role{
	OrderStatusAccepted:   RoleSeller,
	OrderStatusInProgress: RoleSeller,
	OrderStatusDelivered:  RoleSeller,
	OrderStatusCompleted:  RoleBuyer,
	OrderStatusDisputed:   RoleBuyer,
	OrderStatusRefunded:   RoleSeller,
}

// OrderCanTransition reports whether an order may move from one status to
// another, ignoring who asks.
func OrderCanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderTerminal reports whether a status admits no further transitions.
func OrderTerminal(status string) bool {
	return len(orderTransitions[status]) == 0
}

// CanTransitionOrder checks both legality of the edge and the role that owns
// it. Returns ErrInvalidTransition or ErrUnauthorized; nil when the caller
// may proceed.
func CanTransitionOrder(from, to string, caller Role) error {
	if !OrderCanTransition(from, to) {
		return ErrInvalidTransition
	}
	if to == OrderStatusCancelled {
		// Either party may cancel while the order is still early.
		return nil
	}
	if owner, ok := orderTransitionOwner[to]; ok && owner != caller {
		return ErrUnauthorized
	}
	return nil
}

// listingTransitions mirrors the paid-listing chain. EXPIRED is reached only
// from ACTIVE, CANCELLED only before activation.
var listingTransitions = map[string][]string{
	ListingStatusDraft:          {ListingStatusPendingPayment, ListingStatusCancelled},
	ListingStatusPendingPayment: {ListingStatusActive, ListingStatusCancelled},
	ListingStatusActive:         {ListingStatusExpired},
	ListingStatusExpired:        {},
	ListingStatusCancelled:      {},
}

// ListingCanTransition reports whether a listing may move between statuses.
func ListingCanTransition(from, to string) bool {
	for _, next := range listingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// featuredTransitions covers the featured queue chain.
var featuredTransitions = map[string][]string{
	FeaturedStatusPendingPayment: {FeaturedStatusPaid},
	FeaturedStatusPaid:           {FeaturedStatusFeatured},
	FeaturedStatusFeatured:       {FeaturedStatusCompleted},
	FeaturedStatusCompleted:      {},
}

// FeaturedCanTransition reports whether a queue entry may move between
// statuses.
func FeaturedCanTransition(from, to string) bool {
	for _, next := range featuredTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
