package store

import (
	"context"
	"database/sql"
	"time"

	"builders-core/internal/models"
)

// CreateFeaturedEntry inserts a new queue entry in PENDING_PAYMENT.
func (s *Store) CreateFeaturedEntry(ctx context.Context, entry *models.FeaturedEntry) error {
	query := `
		INSERT INTO featured_entries (user_id, project_name, project_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, entry, query,
		entry.UserID, entry.ProjectName, entry.ProjectURL, entry.Status)
}

// GetFeaturedEntryByID retrieves a queue entry by ID
func (s *Store) GetFeaturedEntryByID(ctx context.Context, id int64) (*models.FeaturedEntry, error) {
	var entry models.FeaturedEntry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM featured_entries WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// BeginFeaturedCheckout stores the checkout session on a pending entry.
func (s *Store) BeginFeaturedCheckout(ctx context.Context, entryID int64, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE featured_entries
		SET checkout_session = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		sessionID, entryID, models.FeaturedStatusPendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkFeaturedPaid performs PENDING_PAYMENT -> PAID and assigns the next
// queue position in the same statement. Duplicate webhook deliveries affect
// zero rows and keep the original position.
func (s *Store) MarkFeaturedPaid(ctx context.Context, entryID int64, paymentRef string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE featured_entries
		SET status = $1,
		    payment_reference = $2,
		    queue_position = (SELECT COALESCE(MAX(queue_position), 0) + 1 FROM featured_entries),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.FeaturedStatusPaid, paymentRef, entryID, models.FeaturedStatusPendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetCurrentFeatured returns the unexpired FEATURED entry, if any. Pure read.
func (s *Store) GetCurrentFeatured(ctx context.Context, now time.Time) (*models.FeaturedEntry, error) {
	var entry models.FeaturedEntry
	err := s.db.GetContext(ctx, &entry, `
		SELECT * FROM featured_entries
		WHERE status = $1 AND expires_at > $2
		ORDER BY featured_at DESC LIMIT 1`,
		models.FeaturedStatusFeatured, now)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CompleteStaleFeatured bulk-terminates FEATURED rows whose window lapsed.
func (s *Store) CompleteStaleFeatured(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE featured_entries
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND expires_at <= $3`,
		models.FeaturedStatusCompleted, models.FeaturedStatusFeatured, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NextQueued returns the PAID entry with the lowest queue position.
func (s *Store) NextQueued(ctx context.Context) (*models.FeaturedEntry, error) {
	var entry models.FeaturedEntry
	err := s.db.GetContext(ctx, &entry, `
		SELECT * FROM featured_entries
		WHERE status = $1
		ORDER BY queue_position ASC LIMIT 1`,
		models.FeaturedStatusPaid)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PromoteFeatured performs PAID -> FEATURED conditionally. When two readers
// race, only one update lands; the loser re-reads the slot.
func (s *Store) PromoteFeatured(ctx context.Context, entryID int64, featuredAt, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE featured_entries
		SET status = $1, featured_at = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.FeaturedStatusFeatured, featuredAt, expiresAt,
		entryID, models.FeaturedStatusPaid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CompleteFeatured terminates a specific FEATURED entry (admin override path).
func (s *Store) CompleteFeatured(ctx context.Context, entryID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE featured_entries
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.FeaturedStatusCompleted, entryID, models.FeaturedStatusFeatured)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
