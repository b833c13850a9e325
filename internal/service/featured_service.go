package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"builders-core/config"
	"builders-core/internal/models"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// promoteLockTTL bounds how long the admin override can hold the slot lock.
const promoteLockTTL = 10 * time.Second

// FeaturedService maintains the invariant that at most one queue entry is
// FEATURED and unexpired, with no background scheduler: every read of the
// slot performs the expiry-check-and-promote.
type FeaturedService struct {
	store    FeaturedStore
	cache    FeaturedCache
	checkout CheckoutClient
	effects  Effects
	business config.BusinessConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewFeaturedService creates a new featured queue service
func NewFeaturedService(store FeaturedStore, cache FeaturedCache, checkout CheckoutClient, effects Effects, business config.BusinessConfig) *FeaturedService {
	return &FeaturedService{
		store:    store,
		cache:    cache,
		checkout: checkout,
		effects:  effects,
		business: business,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// SubmitRequest represents a request to join the featured queue
type SubmitRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	ProjectName string `json:"project_name" binding:"required"`
	ProjectURL  string `json:"project_url" binding:"required"`
}

// Submit creates a queue entry awaiting payment.
func (s *FeaturedService) Submit(ctx context.Context, req *SubmitRequest) (*models.FeaturedEntry, error) {
	entry := &models.FeaturedEntry{
		UserID:      req.UserID,
		ProjectName: req.ProjectName,
		ProjectURL:  req.ProjectURL,
		Status:      models.FeaturedStatusPendingPayment,
	}
	if err := s.store.CreateFeaturedEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create featured entry: %w", err)
	}
	s.logger.Info("Featured entry submitted", zap.Int64("entry_id", entry.ID))
	return entry, nil
}

// BeginCheckout creates a provider session for a pending entry.
func (s *FeaturedService) BeginCheckout(ctx context.Context, entryID, userID, priceCents int64) (*CheckoutSession, error) {
	entry, err := s.store.GetFeaturedEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, models.ErrUnauthorized
	}
	if entry.Status != models.FeaturedStatusPendingPayment {
		// Payment already confirmed; hand back the original session.
		if entry.CheckoutSession != nil {
			return &CheckoutSession{SessionID: *entry.CheckoutSession}, models.ErrAlreadyProcessed
		}
		return nil, models.ErrAlreadyProcessed
	}

	session, err := s.checkout.CreateSession(ctx, "featured_entry", entry.ID, priceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if _, err := s.store.BeginFeaturedCheckout(ctx, entryID, session.SessionID); err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}
	return session, nil
}

// MarkFeaturedPaid applies the webhook's payment confirmation: the entry goes
// PAID and receives its queue position exactly once. Duplicate deliveries
// surface ErrAlreadyProcessed without touching the position.
func (s *FeaturedService) MarkFeaturedPaid(ctx context.Context, entryID int64, paymentRef string) error {
	ctx, span := util.StartSpan(ctx, "FeaturedService.MarkFeaturedPaid")
	defer span.End()

	applied, err := s.store.MarkFeaturedPaid(ctx, entryID, paymentRef)
	if err != nil {
		return fmt.Errorf("failed to mark featured entry paid: %w", err)
	}
	if !applied {
		entry, err := s.store.GetFeaturedEntryByID(ctx, entryID)
		if err != nil {
			return err
		}
		switch entry.Status {
		case models.FeaturedStatusPaid, models.FeaturedStatusFeatured, models.FeaturedStatusCompleted:
			return models.ErrAlreadyProcessed
		default:
			return models.ErrInvalidTransition
		}
	}

	s.logger.Info("Featured entry paid", zap.Int64("entry_id", entryID))
	return nil
}

// Current returns the featured entry, expiring and promoting lazily. When
// the queue is empty it returns models.ErrNotFound. Correctness does not
// depend on read timing: a stale FEATURED row is cleaned up by whichever
// read arrives next.
func (s *FeaturedService) Current(ctx context.Context) (*models.FeaturedEntry, error) {
	ctx, span := util.StartSpan(ctx, "FeaturedService.Current")
	defer span.End()

	now := s.now().UTC()

	// Cache is a soft fast path; the database stays authoritative.
	if s.cache != nil {
		if cached, err := s.cache.GetCachedFeatured(ctx); err == nil && cached != nil {
			if cached.ExpiresAt != nil && cached.ExpiresAt.After(now) {
				return cached, nil
			}
		}
	}

	entry, err := s.store.GetCurrentFeatured(ctx, now)
	if err == nil {
		s.cacheEntry(ctx, entry, now)
		return entry, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	// Slot is empty or stale: clean up lapsed rows before promoting.
	if n, err := s.store.CompleteStaleFeatured(ctx, now); err != nil {
		return nil, fmt.Errorf("failed to complete stale featured entries: %w", err)
	} else if n > 0 {
		s.invalidateCache(ctx)
	}

	next, err := s.store.NextQueued(ctx)
	if err != nil {
		// Empty queue included: nothing featured.
		return nil, err
	}

	expiresAt := now.Add(s.business.FeaturedDuration())
	applied, err := s.store.PromoteFeatured(ctx, next.ID, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to promote featured entry: %w", err)
	}
	if !applied {
		// A concurrent reader won the promotion; return its result.
		winner, err := s.store.GetCurrentFeatured(ctx, now)
		if err != nil {
			return nil, err
		}
		return winner, nil
	}

	next.Status = models.FeaturedStatusFeatured
	next.FeaturedAt = &now
	next.ExpiresAt = &expiresAt

	util.FeaturedPromotionsTotal.WithLabelValues("lazy").Inc()
	s.logger.Info("Featured entry promoted",
		zap.Int64("entry_id", next.ID),
		zap.Time("expires_at", expiresAt))

	s.cacheEntry(ctx, next, now)
	s.effects.FeaturedPromoted(ctx, next, false)
	return next, nil
}

// ForcePromote is the admin override: it terminates whatever currently holds
// the slot, then promotes the chosen PAID entry. The lock keeps two overrides
// (or an override racing the lazy path) from ever leaving two FEATURED rows.
func (s *FeaturedService) ForcePromote(ctx context.Context, entryID int64) (*models.FeaturedEntry, error) {
	ctx, span := util.StartSpan(ctx, "FeaturedService.ForcePromote")
	defer span.End()

	if s.cache != nil {
		release, ok, err := s.cache.AcquireLock(ctx, "featured:promote", promoteLockTTL)
		if err != nil {
			s.logger.Warn("Promotion lock unavailable, proceeding on conditional updates", zap.Error(err))
		} else if !ok {
			return nil, fmt.Errorf("%w: promotion already in progress", models.ErrValidation)
		} else {
			defer release()
		}
	}

	entry, err := s.store.GetFeaturedEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.FeaturedStatusPaid {
		return nil, models.ErrInvalidTransition
	}

	now := s.now().UTC()

	// Terminate the incumbent first so there are never two FEATURED rows,
	// even transiently.
	if current, err := s.store.GetCurrentFeatured(ctx, now); err == nil {
		if _, err := s.store.CompleteFeatured(ctx, current.ID); err != nil {
			return nil, fmt.Errorf("failed to complete current featured entry: %w", err)
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.CompleteStaleFeatured(ctx, now); err != nil {
		return nil, fmt.Errorf("failed to complete stale featured entries: %w", err)
	}
	s.invalidateCache(ctx)

	expiresAt := now.Add(s.business.FeaturedDuration())
	applied, err := s.store.PromoteFeatured(ctx, entryID, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to promote featured entry: %w", err)
	}
	if !applied {
		return nil, models.ErrInvalidTransition
	}

	entry.Status = models.FeaturedStatusFeatured
	entry.FeaturedAt = &now
	entry.ExpiresAt = &expiresAt

	util.FeaturedPromotionsTotal.WithLabelValues("forced").Inc()
	s.logger.Info("Featured entry force-promoted", zap.Int64("entry_id", entryID))

	s.cacheEntry(ctx, entry, now)
	s.effects.FeaturedPromoted(ctx, entry, true)
	return entry, nil
}

func (s *FeaturedService) cacheEntry(ctx context.Context, entry *models.FeaturedEntry, now time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheFeatured(ctx, entry, now); err != nil {
		s.logger.Warn("Failed to cache featured entry", zap.Error(err))
	}
}

func (s *FeaturedService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFeatured(ctx); err != nil {
		s.logger.Warn("Failed to invalidate featured cache", zap.Error(err))
	}
}
