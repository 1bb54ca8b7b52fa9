package game

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"
)

// Phase is the engine's lifecycle state. Lost and Won are terminal; a new
// Engine must be constructed for a new session.
type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseLost    Phase = "lost"
	PhaseWon     Phase = "won"
)

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool { return p == PhaseLost || p == PhaseWon }

// Cell identifies a board position, 0 ≤ Row,Col < GridSize.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Wallet is the balance handle the engine debits at start and credits on
// cash-out or win. The balance itself stays owned by the caller.
type Wallet interface {
	// Debit removes amount from the balance, failing if it would go negative.
	Debit(amount decimal.Decimal) error
	// Credit adds amount to the balance.
	Credit(amount decimal.Decimal)
}

// multiplierStep is the fixed increment applied per safe reveal.
var multiplierStep = decimal.NewFromFloat(0.1)

// Engine is the session state machine. It owns the mine placement and the
// revealed set exclusively; both are discarded when the session ends. All
// operations are single atomic steps driven by one caller at a time.
type Engine struct {
	cfg         Config
	wallet      Wallet
	mines       map[Cell]struct{}
	revealed    map[Cell]struct{}
	multiplier  decimal.Decimal
	earnings    decimal.Decimal
	maxEarnings decimal.Decimal
	safeReveals int
	phase       Phase
}

// Start constructs a playing session: it re-validates the config, deducts the
// bet from the wallet exactly once, and samples the mine placement uniformly
// without replacement from the injected random source.
func Start(cfg Config, wallet Wallet, rng *rand.Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("game: start: nil wallet")
	}
	if rng == nil {
		return nil, fmt.Errorf("game: start: nil random source")
	}

	if err := wallet.Debit(cfg.BetAmount); err != nil {
		return nil, fmt.Errorf("game: start: %w", err)
	}

	n := cfg.GridSize
	mines := make(map[Cell]struct{}, cfg.MineCount)
	for _, idx := range rng.Perm(n * n)[:cfg.MineCount] {
		mines[Cell{Row: idx / n, Col: idx % n}] = struct{}{}
	}

	return &Engine{
		cfg:         cfg,
		wallet:      wallet,
		mines:       mines,
		revealed:    make(map[Cell]struct{}, n*n),
		multiplier:  decimal.NewFromInt(1),
		earnings:    decimal.Zero,
		maxEarnings: cfg.MaxEarnings(),
		phase:       PhasePlaying,
	}, nil
}

// Reveal discloses one cell. Out-of-phase, out-of-bounds and already-revealed
// calls are idempotence guards, not errors: the state is returned unchanged.
// Hitting a mine discloses the full board and ends the session with the
// running earnings forfeited. Revealing the last safe cell wins the session
// automatically, crediting earnings without an explicit cash-out.
func (e *Engine) Reveal(row, col int) Snapshot {
	cell := Cell{Row: row, Col: col}
	if e.phase != PhasePlaying || !e.inBounds(cell) {
		return e.Snapshot()
	}
	if _, ok := e.revealed[cell]; ok {
		return e.Snapshot()
	}

	e.revealed[cell] = struct{}{}

	if _, mine := e.mines[cell]; mine {
		e.revealAll()
		e.earnings = decimal.Zero
		e.phase = PhaseLost
		return e.Snapshot()
	}

	e.safeReveals++
	e.multiplier = e.multiplier.Add(multiplierStep)
	e.earnings = decimal.Min(e.earnings.Add(e.cfg.BetAmount.Mul(e.multiplier)), e.maxEarnings)

	if e.checkWon() {
		e.phase = PhaseWon
		e.wallet.Credit(e.earnings)
	}
	return e.Snapshot()
}

// CashOut voluntarily ends a playing session, converting the running earnings
// into balance. A no-op in a terminal phase.
func (e *Engine) CashOut() Snapshot {
	if e.phase != PhasePlaying {
		return e.Snapshot()
	}
	e.wallet.Credit(e.earnings)
	e.phase = PhaseWon
	return e.Snapshot()
}

// checkWon reports whether every non-mine cell has been revealed.
func (e *Engine) checkWon() bool {
	return e.safeReveals == e.cfg.GridSize*e.cfg.GridSize-e.cfg.MineCount
}

func (e *Engine) revealAll() {
	n := e.cfg.GridSize
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			e.revealed[Cell{Row: r, Col: c}] = struct{}{}
		}
	}
}

func (e *Engine) inBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < e.cfg.GridSize && c.Col >= 0 && c.Col < e.cfg.GridSize
}

// Phase returns the current lifecycle state.
func (e *Engine) Phase() Phase { return e.phase }

// Config returns the immutable session setup.
func (e *Engine) Config() Config { return e.cfg }

// Earnings returns the amount credited to balance on an immediate cash-out.
func (e *Engine) Earnings() decimal.Decimal { return e.earnings }

// Multiplier returns the running payout scalar.
func (e *Engine) Multiplier() decimal.Decimal { return e.multiplier }

// IsRevealed reports whether a cell has been disclosed.
func (e *Engine) IsRevealed(row, col int) bool {
	_, ok := e.revealed[Cell{Row: row, Col: col}]
	return ok
}

// IsMine reports mine membership. Only meaningful to callers after the
// session ends; the presentation layer must not consult it mid-game.
func (e *Engine) IsMine(row, col int) bool {
	_, ok := e.mines[Cell{Row: row, Col: col}]
	return ok
}

// Snapshot is the engine's event surface: the full observable state after an
// operation. Mine positions are disclosed only once the session is over.
type Snapshot struct {
	Phase       Phase           `json:"phase"`
	GridSize    int             `json:"grid_size"`
	MineCount   int             `json:"mine_count"`
	Revealed    []Cell          `json:"revealed"`
	Mines       []Cell          `json:"mines,omitempty"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Earnings    decimal.Decimal `json:"earnings"`
	SafeReveals int             `json:"safe_reveals"`
}

// Snapshot captures the current observable state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:       e.phase,
		GridSize:    e.cfg.GridSize,
		MineCount:   e.cfg.MineCount,
		Revealed:    sortedCells(e.revealed),
		Multiplier:  e.multiplier,
		Earnings:    e.earnings,
		SafeReveals: e.safeReveals,
	}
	if e.phase.Terminal() {
		snap.Mines = sortedCells(e.mines)
	}
	return snap
}

// sortedCells returns set members in row-major order for stable output.
func sortedCells(set map[Cell]struct{}) []Cell {
	cells := make([]Cell, 0, len(set))
	for c := range set {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells
}
