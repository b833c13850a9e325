package store

import (
	"context"
	"database/sql"
	"time"

	"builders-core/internal/models"
)

// CreateListing inserts a new listing in DRAFT.
func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (user_id, category, title, price_cents, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, listing, query,
		listing.UserID, listing.Category, listing.Title, listing.PriceCents, listing.Status)
}

// GetListingByID retrieves a listing by ID
func (s *Store) GetListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.GetContext(ctx, &listing, "SELECT * FROM listings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetListingsByUserID retrieves listings owned by a user
func (s *Store) GetListingsByUserID(ctx context.Context, userID int64) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.SelectContext(ctx, &listings,
		"SELECT * FROM listings WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return listings, err
}

// BeginListingCheckout moves DRAFT -> PENDING_PAYMENT and stores the checkout
// session id. Conditional on the row still being DRAFT; returns false when it
// is not.
func (s *Store) BeginListingCheckout(ctx context.Context, listingID int64, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, checkout_session = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.ListingStatusPendingPayment, sessionID, listingID, models.ListingStatusDraft)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ActivateListing performs PENDING_PAYMENT -> ACTIVE as one conditional
// update: status, payment reference and both timestamps land together or not
// at all. A duplicate delivery finds the row already ACTIVE and affects zero
// rows, which is the idempotency guarantee.
func (s *Store) ActivateListing(ctx context.Context, listingID int64, paymentRef string, activatedAt, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, payment_reference = $2, activated_at = $3, expires_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6`,
		models.ListingStatusActive, paymentRef, activatedAt, expiresAt,
		listingID, models.ListingStatusPendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireListing writes back EXPIRED for an ACTIVE listing whose window has
// lapsed. No-op when another reader already did it.
func (s *Store) ExpireListing(ctx context.Context, listingID int64, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND expires_at <= $4`,
		models.ListingStatusExpired, listingID, models.ListingStatusActive, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelListing cancels a listing that has not been activated yet.
func (s *Store) CancelListing(ctx context.Context, listingID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status IN ($4, $5)`,
		models.ListingStatusCancelled, listingID, userID,
		models.ListingStatusDraft, models.ListingStatusPendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteListing removes a listing on explicit owner request. Child orders go
// with it via the FK cascade.
func (s *Store) DeleteListing(ctx context.Context, listingID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM listings WHERE id = $1 AND user_id = $2", listingID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
