// Package controller orchestrates the game: it owns the profile and
// leaderboard, constructs session engines from validated configs, folds
// terminal outcomes back into the profile exactly once, and asks the
// persistence collaborators to save.
package controller

import (
	"errors"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"minegem/internal/game"
	"minegem/internal/history"
	"minegem/internal/persist"
	"minegem/internal/profile"
)

var (
	// ErrNoSession rejects session commands when no session exists.
	ErrNoSession = errors.New("controller: no active session")
	// ErrSessionActive rejects a new session while one is still playing.
	ErrSessionActive = errors.New("controller: a session is already in progress")
)

// SetupInput carries the raw fields the setup flow collects from the player.
type SetupInput struct {
	GridSize   int    `json:"grid_size"`
	Mines      string `json:"mines"`
	Bet        string `json:"bet"`
	Difficulty string `json:"difficulty"`
}

// Controller drives the config → session → outcome loop. Commands are
// serialized: no two are ever processed concurrently against the same
// engine or profile.
type Controller struct {
	mu sync.Mutex

	stats *profile.Stats
	board *profile.Leaderboard
	store *persist.Store
	hist  *history.Store // optional; nil disables history recording
	rng   *rand.Rand
	log   *log.Logger

	session       *game.Engine
	sessionID     string
	revealSeq     int
	balanceBefore decimal.Decimal
	concluded     bool
}

// New wires a controller. hist may be nil. rng may be nil, in which case a
// time-seeded source is used; tests inject a deterministic one.
func New(store *persist.Store, hist *history.Store, rng *rand.Rand, logger *log.Logger) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[game] ", log.LstdFlags)
	}
	stats := store.LoadStats()
	return &Controller{
		stats: &stats,
		board: store.LoadLeaderboard(),
		store: store,
		hist:  hist,
		rng:   rng,
		log:   logger,
	}
}

// StartSession validates the raw setup input against the current balance and,
// on success, constructs a new playing session. The bet is deducted from the
// balance exactly once, before any reveal is processed.
func (c *Controller) StartSession(in SetupInput) (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Phase() == game.PhasePlaying {
		return game.Snapshot{}, ErrSessionActive
	}

	cfg, err := game.NewConfig(in.GridSize, in.Mines, in.Bet, game.ParseDifficulty(in.Difficulty), c.stats.Balance)
	if err != nil {
		return game.Snapshot{}, err
	}

	balanceBefore := c.stats.Balance
	engine, err := game.Start(cfg, c.stats, c.rng)
	if err != nil {
		return game.Snapshot{}, err
	}

	c.session = engine
	c.balanceBefore = balanceBefore
	c.revealSeq = 0
	c.concluded = false
	c.sessionID = ""

	if c.hist != nil {
		id, err := c.hist.CreateSession(&history.Session{
			GridSize:   cfg.GridSize,
			MineCount:  cfg.MineCount,
			Difficulty: string(cfg.Difficulty),
			BetAmount:  cfg.BetAmount,
		})
		if err != nil {
			c.log.Printf("history: %v", err)
		} else {
			c.sessionID = id
		}
	}

	return engine.Snapshot(), nil
}

// Reveal discloses one cell of the active session. Guarded no-ops inside the
// engine return the unchanged state rather than an error.
func (c *Controller) Reveal(row, col int) (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return game.Snapshot{}, ErrNoSession
	}

	wasPlaying := c.session.Phase() == game.PhasePlaying
	alreadyRevealed := c.session.IsRevealed(row, col)

	snap := c.session.Reveal(row, col)

	if c.hist != nil && c.sessionID != "" && wasPlaying && !alreadyRevealed && inBounds(snap, row, col) {
		c.revealSeq++
		if err := c.hist.InsertReveal(c.sessionID, c.revealSeq, row, col, c.session.IsMine(row, col)); err != nil {
			c.log.Printf("history: %v", err)
		}
	}

	c.concludeIfTerminal(snap)
	return snap, nil
}

// CashOut voluntarily ends the active session with its running earnings.
func (c *Controller) CashOut() (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return game.Snapshot{}, ErrNoSession
	}
	snap := c.session.CashOut()
	c.concludeIfTerminal(snap)
	return snap, nil
}

// Snapshot returns the active session's observable state.
func (c *Controller) Snapshot() (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return game.Snapshot{}, ErrNoSession
	}
	return c.session.Snapshot(), nil
}

// concludeIfTerminal folds a terminal outcome into the profile exactly once
// and persists everything. Persistence failures are logged, never surfaced.
func (c *Controller) concludeIfTerminal(snap game.Snapshot) {
	if !snap.Phase.Terminal() || c.concluded {
		return
	}
	c.concluded = true

	finalBalance := c.stats.Balance
	c.stats.ApplyOutcome(c.board, snap.Phase, c.balanceBefore, finalBalance)

	if err := c.store.SaveStats(*c.stats); err != nil {
		c.log.Printf("save stats: %v", err)
	}
	if err := c.store.SaveLeaderboard(c.board); err != nil {
		c.log.Printf("save leaderboard: %v", err)
	}
	if c.hist != nil && c.sessionID != "" {
		err := c.hist.EndSession(c.sessionID, history.Outcome{
			Phase:        snap.Phase,
			Multiplier:   snap.Multiplier,
			Earnings:     snap.Earnings,
			FinalBalance: finalBalance,
			SafeReveals:  snap.SafeReveals,
		})
		if err != nil {
			c.log.Printf("history: %v", err)
		}
	}
}

// ClaimPromo redeems the one-shot promo code against the profile.
func (c *Controller) ClaimPromo(code string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.stats.ClaimPromo(code, now); err != nil {
		return err
	}
	if err := c.store.SaveStats(*c.stats); err != nil {
		c.log.Printf("save stats: %v", err)
	}
	return nil
}

// SetSound toggles the persisted sound preference.
func (c *Controller) SetSound(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.SoundEnabled = enabled
	if err := c.store.SaveStats(*c.stats); err != nil {
		c.log.Printf("save stats: %v", err)
	}
}

// Stats returns a copy of the current profile.
func (c *Controller) Stats() profile.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.stats
}

// Leaderboard returns the final-balance history sorted descending.
func (c *Controller) Leaderboard() []decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Sorted()
}

// Save flushes the profile and leaderboard, used on shutdown.
func (c *Controller) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SaveStats(*c.stats); err != nil {
		c.log.Printf("save stats: %v", err)
	}
	if err := c.store.SaveLeaderboard(c.board); err != nil {
		c.log.Printf("save leaderboard: %v", err)
	}
}

func inBounds(snap game.Snapshot, row, col int) bool {
	return row >= 0 && row < snap.GridSize && col >= 0 && col < snap.GridSize
}
