// Package profile holds the persistent player profile: balance and lifetime
// stats, the bounded leaderboard, the per-session outcome fold and the
// one-shot promo code claim.
package profile

import (
	"errors"

	"github.com/shopspring/decimal"

	"minegem/internal/game"
)

// ErrInsufficientBalance rejects a debit that would take the balance negative.
var ErrInsufficientBalance = errors.New("profile: insufficient balance")

// Stats is the process-durable player profile. Zero values are not the
// defaults; use DefaultStats for a fresh profile.
type Stats struct {
	Balance       decimal.Decimal `json:"balance"`
	HighScore     decimal.Decimal `json:"high_score"`
	SoundEnabled  bool            `json:"sound_enabled"`
	TotalGames    int             `json:"total_games"`
	TotalWins     int             `json:"total_wins"`
	TotalLosses   int             `json:"total_losses"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	PromocodeUsed bool            `json:"promocode_used"`
}

// DefaultStats returns the profile used when no prior one exists or the
// persisted record fails to parse.
func DefaultStats() Stats {
	return Stats{
		Balance:       decimal.NewFromInt(1000),
		HighScore:     decimal.Zero,
		SoundEnabled:  true,
		TotalEarnings: decimal.Zero,
	}
}

// Debit removes amount from the balance. Implements game.Wallet.
func (s *Stats) Debit(amount decimal.Decimal) error {
	if amount.GreaterThan(s.Balance) {
		return ErrInsufficientBalance
	}
	s.Balance = s.Balance.Sub(amount)
	return nil
}

// Credit adds amount to the balance. Implements game.Wallet.
func (s *Stats) Credit(amount decimal.Decimal) {
	s.Balance = s.Balance.Add(amount)
}

// ApplyOutcome folds one concluded session into the profile and leaderboard.
// balanceBefore is the balance as it stood before the session's bet was
// deducted; finalBalance is the balance the session ended with. The caller
// must invoke this exactly once per concluded session.
func (s *Stats) ApplyOutcome(board *Leaderboard, phase game.Phase, balanceBefore, finalBalance decimal.Decimal) {
	s.TotalGames++
	if phase == game.PhaseWon {
		s.TotalWins++
		s.TotalEarnings = s.TotalEarnings.Add(finalBalance.Sub(balanceBefore))
	} else {
		s.TotalLosses++
	}
	s.Balance = finalBalance
	s.HighScore = decimal.Max(s.HighScore, finalBalance)
	if board != nil {
		board.Insert(finalBalance)
	}
}
