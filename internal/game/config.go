// Package game implements the Mine & Gem session engine: setup validation,
// mine placement, the reveal/payout state machine and win/loss determination.
package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// GridOptions lists the allowed board dimensions (n×n).
var GridOptions = []int{4, 5, 6, 7, 8}

// Difficulty scales the raw mine count entered by the player.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Setup rejection reasons. These are expected user-facing outcomes, not
// failures; session state is unchanged when any of them is returned.
var (
	ErrInvalidInput      = errors.New("game: invalid input, use numbers only")
	ErrBetExceedsBalance = errors.New("game: bet exceeds balance")
	ErrTooManyMines      = errors.New("game: too many mines for grid size")
	ErrNonPositiveValue  = errors.New("game: bet and mines must be positive")
)

// Multiplier returns the scaling applied to the raw mine count.
func (d Difficulty) Multiplier() decimal.Decimal {
	switch d {
	case DifficultyEasy:
		return decimal.NewFromFloat(0.5)
	case DifficultyHard:
		return decimal.NewFromFloat(1.5)
	default:
		return decimal.NewFromInt(1)
	}
}

// ParseDifficulty maps user input to a Difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// Config is a validated, immutable session setup. Construct via NewConfig;
// a Config that fails validation must never reach the engine.
type Config struct {
	GridSize   int
	MineCount  int
	BetAmount  decimal.Decimal
	Difficulty Difficulty
}

// NewConfig validates raw setup fields against the current balance and
// produces a Config or a specific rejection reason. Checks run in a fixed
// order and the first failure wins. Pure function, no side effects.
func NewConfig(gridSize int, rawMines, rawBet string, difficulty Difficulty, balance decimal.Decimal) (Config, error) {
	if !validGridSize(gridSize) {
		return Config{}, fmt.Errorf("%w: grid size %d", ErrInvalidInput, gridSize)
	}

	minesIn, err := strconv.ParseInt(strings.TrimSpace(rawMines), 10, 64)
	if err != nil {
		return Config{}, ErrInvalidInput
	}
	bet, err := decimal.NewFromString(strings.TrimSpace(rawBet))
	if err != nil {
		return Config{}, ErrInvalidInput
	}

	// Difficulty scales the entered mine count, rounded to nearest, before
	// any bound checks.
	mineCount := int(decimal.NewFromInt(minesIn).Mul(difficulty.Multiplier()).Round(0).IntPart())

	if bet.GreaterThan(balance) {
		return Config{}, ErrBetExceedsBalance
	}
	if mineCount >= gridSize*gridSize {
		return Config{}, ErrTooManyMines
	}
	if bet.Sign() <= 0 || mineCount <= 0 {
		return Config{}, ErrNonPositiveValue
	}

	return Config{
		GridSize:   gridSize,
		MineCount:  mineCount,
		BetAmount:  bet,
		Difficulty: difficulty,
	}, nil
}

// Validate re-checks the bounds a Config must satisfy. The engine calls this
// defensively at start rather than trusting the caller. Membership in
// GridOptions is a setup-menu rule, not an engine one; the engine only
// requires a sane board.
func (c Config) Validate() error {
	if c.GridSize < 2 {
		return fmt.Errorf("%w: grid size %d", ErrInvalidInput, c.GridSize)
	}
	if c.MineCount >= c.GridSize*c.GridSize {
		return ErrTooManyMines
	}
	if c.BetAmount.Sign() <= 0 || c.MineCount <= 0 {
		return ErrNonPositiveValue
	}
	return nil
}

// MaxEarnings returns the payout clamp fixed at session start:
// (n² − mines) × bet × 2.
func (c Config) MaxEarnings() decimal.Decimal {
	safeCells := int64(c.GridSize*c.GridSize - c.MineCount)
	return c.BetAmount.Mul(decimal.NewFromInt(safeCells)).Mul(decimal.NewFromInt(2))
}

func validGridSize(n int) bool {
	for _, opt := range GridOptions {
		if n == opt {
			return true
		}
	}
	return false
}
