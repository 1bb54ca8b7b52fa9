package autoplay

import (
	"log"
	"os"

	"minegem/internal/controller"
	"minegem/internal/game"
)

// Runner drives one session from a strategy script: it starts the session,
// feeds round(state) decisions into the controller and stops at a terminal
// phase, a stop() call or the round cap.
type Runner struct {
	vm     *VM
	ctrl   *controller.Controller
	logger *log.Logger

	// MaxRounds bounds the command loop; scripts that spin on guarded
	// no-op reveals terminate here. Zero means 4 commands per cell.
	MaxRounds int
}

// Result summarizes a completed autoplay run.
type Result struct {
	Snapshot game.Snapshot `json:"snapshot"`
	Rounds   int           `json:"rounds"`
	Stopped  bool          `json:"stopped"` // script called stop() mid-session
	Logs     []LogEntry    `json:"logs"`
}

// NewRunner compiles the script source and prepares a runner.
func NewRunner(ctrl *controller.Controller, source string, logger *log.Logger) (*Runner, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[autoplay] ", log.LstdFlags)
	}
	vm := NewVM()
	if err := vm.Execute(source); err != nil {
		return nil, err
	}
	return &Runner{vm: vm, ctrl: ctrl, logger: logger}, nil
}

// Run plays one full session under script control.
func (r *Runner) Run(in controller.SetupInput) (Result, error) {
	snap, err := r.ctrl.StartSession(in)
	if err != nil {
		return Result{}, err
	}

	maxRounds := r.MaxRounds
	if maxRounds <= 0 {
		maxRounds = snap.GridSize * snap.GridSize * 4
	}

	rounds := 0
	for snap.Phase == game.PhasePlaying && rounds < maxRounds {
		if r.vm.StopRequested() {
			// A stopped script forfeits nothing: cash out what is there.
			snap, err = r.ctrl.CashOut()
			if err != nil {
				return Result{}, err
			}
			break
		}

		action, err := r.vm.CallRound(scriptState(snap))
		if err != nil {
			return Result{}, err
		}
		rounds++

		switch action.Kind {
		case ActionReveal:
			snap, err = r.ctrl.Reveal(action.Row, action.Col)
		case ActionCashOut:
			snap, err = r.ctrl.CashOut()
		}
		if err != nil {
			return Result{}, err
		}
	}

	if snap.Phase == game.PhasePlaying {
		r.logger.Printf("round cap reached after %d rounds; cashing out", rounds)
		if snap, err = r.ctrl.CashOut(); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Snapshot: snap,
		Rounds:   rounds,
		Stopped:  r.vm.StopRequested(),
		Logs:     r.vm.Logs(),
	}, nil
}

// scriptState converts a snapshot into the plain structure handed to
// round(). Money fields are floats inside the script sandbox.
func scriptState(snap game.Snapshot) map[string]any {
	revealed := make([]map[string]any, len(snap.Revealed))
	for i, c := range snap.Revealed {
		revealed[i] = map[string]any{"row": c.Row, "col": c.Col}
	}
	return map[string]any{
		"phase":       string(snap.Phase),
		"gridSize":    snap.GridSize,
		"mineCount":   snap.MineCount,
		"revealed":    revealed,
		"earnings":    snap.Earnings.InexactFloat64(),
		"multiplier":  snap.Multiplier.InexactFloat64(),
		"safeReveals": snap.SafeReveals,
	}
}
