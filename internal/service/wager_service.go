package service

import (
	"context"
	"errors"
	"fmt"

	"builders-core/config"
	"builders-core/internal/ledger"
	"builders-core/internal/models"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// WagerService handles MRR growth bets: placement (fee split + atomic debit)
// and settlement (single credit per wager, enforced by the store's
// conditional update).
type WagerService struct {
	store    WagerStore
	effects  Effects
	business config.BusinessConfig
	logger   *zap.Logger
}

// NewWagerService creates a new wager service
func NewWagerService(store WagerStore, effects Effects, business config.BusinessConfig) *WagerService {
	return &WagerService{
		store:    store,
		effects:  effects,
		business: business,
		logger:   util.GetLogger(),
	}
}

// CreateProjectRequest represents a request to showcase a project
type CreateProjectRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	MRRCents int64  `json:"mrr_cents" binding:"min=0"`
}

// CreateProject registers a project that wagers can target.
func (s *WagerService) CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Project, error) {
	project := &models.Project{
		UserID:   req.UserID,
		Name:     req.Name,
		MRRCents: req.MRRCents,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.logger.Info("Project created",
		zap.Int64("project_id", project.ID),
		zap.Int64("user_id", project.UserID))
	return project, nil
}

// GetProject returns a showcased project.
func (s *WagerService) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	return s.store.GetProjectByID(ctx, projectID)
}

// PlaceWagerRequest represents a request to bet on a project's MRR growth
type PlaceWagerRequest struct {
	UserID        int64 `json:"user_id" binding:"required"`
	ProjectID     int64 `json:"project_id" binding:"required"`
	TargetPercent int   `json:"target_percent" binding:"required"`
	StakeTokens   int64 `json:"stake_tokens" binding:"required"`
}

// Place validates the bet, splits the stake into house fee and net stake,
// and debits the full stake atomically with the wager insert.
func (s *WagerService) Place(ctx context.Context, req *PlaceWagerRequest) (*models.Wager, error) {
	ctx, span := util.StartSpan(ctx, "WagerService.Place")
	defer span.End()

	project, err := s.store.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			util.WagersRejectedTotal.WithLabelValues("project_not_found").Inc()
		}
		return nil, err
	}

	wallet, err := s.store.GetOrCreateWallet(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	if err := ledger.ValidatePlacement(ledger.PlacementInput{
		UserID:         req.UserID,
		ProjectOwnerID: project.UserID,
		Balance:        wallet.Balance,
		StakeTokens:    req.StakeTokens,
		TargetPercent:  req.TargetPercent,
		MinStake:       s.business.WagerMinStake,
		MaxTargetPct:   s.business.WagerMaxTargetPct,
	}); err != nil {
		util.WagersRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	fee := ledger.HouseFee(req.StakeTokens, s.business.WagerFeeRateBps)
	wager := &models.Wager{
		UserID:        req.UserID,
		ProjectID:     req.ProjectID,
		TargetPercent: req.TargetPercent,
		StakeTokens:   req.StakeTokens,
		HouseFee:      fee,
		NetStake:      req.StakeTokens - fee,
		Status:        models.WagerStatusPending,
	}

	if err := s.store.PlaceWager(ctx, wager); err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			util.WagersRejectedTotal.WithLabelValues("insufficient_funds").Inc()
		}
		return nil, err
	}

	util.WagersPlacedTotal.Inc()
	util.HouseFeeTokensTotal.Add(float64(fee))
	s.logger.Info("Wager placed",
		zap.Int64("wager_id", wager.ID),
		zap.Int64("user_id", wager.UserID),
		zap.Int64("project_id", wager.ProjectID),
		zap.Int64("stake_tokens", wager.StakeTokens),
		zap.Int64("house_fee_tokens", wager.HouseFee))

	s.effects.WagerPlaced(ctx, wager)
	return wager, nil
}

// Settle resolves a single wager. Only PENDING wagers settle; a second call
// for the same wager returns the settled row with ErrAlreadyProcessed and
// credits nothing.
func (s *WagerService) Settle(ctx context.Context, wagerID int64, outcome string) (*models.Wager, error) {
	ctx, span := util.StartSpan(ctx, "WagerService.Settle")
	defer span.End()

	current, err := s.store.GetWagerByID(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.WagerStatusPending {
		return current, models.ErrAlreadyProcessed
	}

	payout, err := ledger.Payout(current.NetStake, outcome)
	if err != nil {
		return nil, err
	}

	settled, err := s.store.SettleWager(ctx, wagerID, outcome, payout)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyProcessed) {
			// Lost a race with a concurrent settlement.
			if current, gerr := s.store.GetWagerByID(ctx, wagerID); gerr == nil {
				return current, models.ErrAlreadyProcessed
			}
			return nil, models.ErrAlreadyProcessed
		}
		return nil, err
	}

	util.WagersSettledTotal.WithLabelValues(outcome).Inc()
	s.logger.Info("Wager settled",
		zap.Int64("wager_id", wagerID),
		zap.String("outcome", outcome),
		zap.Int64("payout_tokens", payout))

	s.effects.WagerSettled(ctx, settled)
	return settled, nil
}

// ResolveProject settles every pending wager on a project against its
// achieved MRR growth. Wagers already settled by a concurrent resolve are
// skipped rather than failing the batch.
func (s *WagerService) ResolveProject(ctx context.Context, projectID int64, achievedPercent int) (int, error) {
	ctx, span := util.StartSpan(ctx, "WagerService.ResolveProject")
	defer span.End()

	pending, err := s.store.GetPendingWagersByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range pending {
		w := &pending[i]
		outcome := models.WagerStatusLost
		if achievedPercent >= w.TargetPercent {
			outcome = models.WagerStatusWon
		}
		if _, err := s.Settle(ctx, w.ID, outcome); err != nil {
			if errors.Is(err, models.ErrAlreadyProcessed) {
				continue
			}
			return settled, fmt.Errorf("failed to settle wager %d: %w", w.ID, err)
		}
		settled++
	}

	s.logger.Info("Project wagers resolved",
		zap.Int64("project_id", projectID),
		zap.Int("achieved_percent", achievedPercent),
		zap.Int("settled", settled))
	return settled, nil
}

// GetBalance returns the user's token balance, creating the wallet on first
// touch.
func (s *WagerService) GetBalance(ctx context.Context, userID int64) (*models.Wallet, error) {
	return s.store.GetOrCreateWallet(ctx, userID)
}

// Get returns a wager visible only to its owner.
func (s *WagerService) Get(ctx context.Context, wagerID, userID int64) (*models.Wager, error) {
	wager, err := s.store.GetWagerByID(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if wager.UserID != userID {
		return nil, models.ErrUnauthorized
	}
	return wager, nil
}

// ListByUser returns the user's wagers, newest first.
func (s *WagerService) ListByUser(ctx context.Context, userID int64) ([]models.Wager, error) {
	return s.store.GetWagersByUserID(ctx, userID)
}

// Ledger returns the user's balance audit trail.
func (s *WagerService) Ledger(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	return s.store.GetLedgerByUserID(ctx, userID)
}
