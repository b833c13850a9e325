// Package ledger holds the pure token arithmetic for wagers: house fee,
// net stake and placement validation. No side effects live here.
package ledger

import (
	"fmt"

	"builders-core/internal/models"
)

// HouseFee returns the platform's cut for a stake at the given fee rate in
// basis points, rounded half-up. Integer tokens only.
func HouseFee(stake int64, feeRateBps int64) int64 {
	return (stake*feeRateBps + 5000) / 10000
}

// NetStake returns the portion of the stake that remains at risk once the
// house fee is removed. HouseFee + NetStake == stake for every input.
func NetStake(stake int64, feeRateBps int64) int64 {
	return stake - HouseFee(stake, feeRateBps)
}

// PlacementInput captures everything needed to validate a bet before any
// balance is touched.
type PlacementInput struct {
	UserID         int64
	ProjectOwnerID int64
	Balance        int64
	StakeTokens    int64
	TargetPercent  int
	MinStake       int64
	MaxTargetPct   int
}

// ValidatePlacement rejects a bet before any debit. All failures wrap
// models.ErrValidation so callers can classify without string matching.
func ValidatePlacement(in PlacementInput) error {
	if in.StakeTokens <= 0 {
		return fmt.Errorf("%w: stake must be positive", models.ErrValidation)
	}
	if in.StakeTokens < in.MinStake {
		return fmt.Errorf("%w: stake %d below minimum %d", models.ErrValidation, in.StakeTokens, in.MinStake)
	}
	if in.StakeTokens > in.Balance {
		return fmt.Errorf("%w: stake %d exceeds balance %d", models.ErrValidation, in.StakeTokens, in.Balance)
	}
	if in.TargetPercent <= 0 || in.TargetPercent > in.MaxTargetPct {
		return fmt.Errorf("%w: target percent %d out of bounds (1-%d)", models.ErrValidation, in.TargetPercent, in.MaxTargetPct)
	}
	if in.UserID == in.ProjectOwnerID {
		return fmt.Errorf("%w: cannot bet on your own project", models.ErrValidation)
	}
	return nil
}

// Payout returns the tokens credited back on settlement. A win returns the
// net stake doubled; a void refunds the net stake; a loss pays nothing.
func Payout(netStake int64, outcome string) (int64, error) {
	switch outcome {
	case models.WagerStatusWon:
		return netStake * 2, nil
	case models.WagerStatusLost:
		return 0, nil
	case models.WagerStatusVoid:
		return netStake, nil
	default:
		return 0, fmt.Errorf("%w: unknown settlement outcome %q", models.ErrValidation, outcome)
	}
}
