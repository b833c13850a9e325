package store

import (
	"context"
	"database/sql"
	"fmt"

	"builders-core/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetOrCreateWallet returns a user's wallet, creating an empty one on first
// touch.
func (s *Store) GetOrCreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO wallets (user_id, balance_tokens) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING", userID)
	if err != nil {
		return nil, err
	}

	var wallet models.Wallet
	if err := s.db.GetContext(ctx, &wallet, "SELECT * FROM wallets WHERE user_id = $1", userID); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetBalance retrieves a user's token balance
func (s *Store) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance,
		"SELECT balance_tokens FROM wallets WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	return balance, err
}

// AdjustBalance applies a delta and writes the audit ledger entry in the same
// transaction, so balance and audit trail never diverge. Debits that would go
// below zero fail with ErrInsufficientFunds.
func (s *Store) AdjustBalance(ctx context.Context, userID, delta int64, reason string, wagerID *int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return adjustBalanceTx(ctx, tx, userID, delta, reason, wagerID)
	})
}

// adjustBalanceTx is the shared in-transaction mutation: row lock, balance
// check, update, ledger insert.
func adjustBalanceTx(ctx context.Context, tx *sqlx.Tx, userID, delta int64, reason string, wagerID *int64) error {
	var balance int64
	err := tx.GetContext(ctx, &balance,
		"SELECT balance_tokens FROM wallets WHERE user_id = $1 FOR UPDATE", userID)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock wallet: %w", err)
	}

	if balance+delta < 0 {
		return models.ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE wallets SET balance_tokens = balance_tokens + $1, updated_at = NOW() WHERE user_id = $2",
		delta, userID); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO wallet_ledger (user_id, delta_tokens, reason, wager_id) VALUES ($1, $2, $3, $4)",
		userID, delta, reason, wagerID); err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}

	return nil
}

// PlaceWager debits the stake and creates the pending wager row atomically.
// The balance is re-read under FOR UPDATE inside the transaction, so two
// concurrent placements cannot both pass validation against a stale balance.
func (s *Store) PlaceWager(ctx context.Context, wager *models.Wager) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO wagers (user_id, project_id, target_percent, stake_tokens, house_fee_tokens, net_stake_tokens, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`

		if err := tx.GetContext(ctx, wager, query,
			wager.UserID, wager.ProjectID, wager.TargetPercent,
			wager.StakeTokens, wager.HouseFee, wager.NetStake, wager.Status); err != nil {
			return fmt.Errorf("failed to create wager: %w", err)
		}

		return adjustBalanceTx(ctx, tx, wager.UserID, -wager.StakeTokens,
			models.LedgerReasonWagerStake, &wager.ID)
	})
}

// SettleWager resolves a pending wager and credits any payout in one
// transaction. The status update is conditional on PENDING, so settling the
// same wager twice credits the payout exactly once.
func (s *Store) SettleWager(ctx context.Context, wagerID int64, outcome string, payout int64) (*models.Wager, error) {
	var wager models.Wager
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE wagers
			SET status = $1, payout_tokens = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4`,
			outcome, payout, wagerID, models.WagerStatusPending)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			if err := tx.GetContext(ctx, &wager, "SELECT * FROM wagers WHERE id = $1", wagerID); err == sql.ErrNoRows {
				return models.ErrNotFound
			} else if err != nil {
				return err
			}
			return models.ErrAlreadyProcessed
		}

		if err := tx.GetContext(ctx, &wager, "SELECT * FROM wagers WHERE id = $1", wagerID); err != nil {
			return err
		}

		if payout > 0 {
			reason := models.LedgerReasonWagerPayout
			if outcome == models.WagerStatusVoid {
				reason = models.LedgerReasonWagerRefund
			}
			return adjustBalanceTx(ctx, tx, wager.UserID, payout, reason, &wager.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// GetWagerByID retrieves a wager by ID
func (s *Store) GetWagerByID(ctx context.Context, id int64) (*models.Wager, error) {
	var wager models.Wager
	err := s.db.GetContext(ctx, &wager, "SELECT * FROM wagers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// GetWagersByUserID retrieves wagers placed by a user
func (s *Store) GetWagersByUserID(ctx context.Context, userID int64) ([]models.Wager, error) {
	var wagers []models.Wager
	err := s.db.SelectContext(ctx, &wagers,
		"SELECT * FROM wagers WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return wagers, err
}

// GetLedgerByUserID retrieves a user's audit trail, newest first.
func (s *Store) GetLedgerByUserID(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM wallet_ledger WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return entries, err
}
