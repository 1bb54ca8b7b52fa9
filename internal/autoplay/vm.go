// Package autoplay runs sandboxed JavaScript strategy scripts against the
// game. A script defines round(state) and returns the next action: reveal a
// cell or cash out.
package autoplay

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// LogEntry is a single log message emitted by the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// VM wraps a goja runtime with sandbox restrictions and injected globals.
type VM struct {
	runtime *goja.Runtime
	round   goja.Callable

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	stopRequested bool
}

// NewVM creates a sandboxed runtime with log, console.log and stop injected.
func NewVM() *VM {
	vm := &VM{
		runtime: goja.New(),
		maxLogs: 500,
	}
	vm.injectGlobals()
	return vm
}

func (vm *VM) injectGlobals() {
	// log(...args) — appends to the log buffer
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	// console.log — alias for log
	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// stop() — ends the autoplay run after the current round
	vm.runtime.Set("stop", func(call goja.FunctionCall) goja.Value {
		vm.stopRequested = true
		return goja.Undefined()
	})

	// Block dangerous globals.
	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	if len(vm.logs) >= vm.maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
}

// Logs returns a copy of the script's log buffer.
func (vm *VM) Logs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

// Execute runs the script source once and captures its round() function.
func (vm *VM) Execute(source string) error {
	timer := time.AfterFunc(scriptInitTimeout, func() {
		vm.runtime.Interrupt("script init timeout")
	})
	_, err := vm.runtime.RunString(source)
	timer.Stop()
	vm.runtime.ClearInterrupt()
	if err != nil {
		return fmt.Errorf("autoplay: script error: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.runtime.Get("round"))
	if !ok {
		return fmt.Errorf("autoplay: script must define a round(state) function")
	}
	vm.round = fn
	return nil
}

// CallRound invokes round(state) and decodes the returned action.
func (vm *VM) CallRound(state map[string]any) (Action, error) {
	timer := time.AfterFunc(scriptCallTimeout, func() {
		vm.runtime.Interrupt("round() timeout")
	})
	v, err := vm.round(goja.Undefined(), vm.runtime.ToValue(state))
	timer.Stop()
	vm.runtime.ClearInterrupt()
	if err != nil {
		return Action{}, fmt.Errorf("autoplay: round(): %w", err)
	}
	return decodeAction(v)
}

// StopRequested reports whether the script called stop().
func (vm *VM) StopRequested() bool { return vm.stopRequested }

// Action is the decision a script returns from round().
type Action struct {
	Kind ActionKind
	Row  int
	Col  int
}

// ActionKind enumerates script decisions.
type ActionKind string

const (
	ActionReveal  ActionKind = "reveal"
	ActionCashOut ActionKind = "cashout"
)

func decodeAction(v goja.Value) (Action, error) {
	obj, ok := v.Export().(map[string]any)
	if !ok {
		return Action{}, fmt.Errorf("autoplay: round() must return an action object, got %v", v)
	}
	kind, _ := obj["action"].(string)
	switch ActionKind(kind) {
	case ActionCashOut:
		return Action{Kind: ActionCashOut}, nil
	case ActionReveal:
		row, ok1 := asInt(obj["row"])
		col, ok2 := asInt(obj["col"])
		if !ok1 || !ok2 {
			return Action{}, fmt.Errorf("autoplay: reveal action requires integer row and col")
		}
		return Action{Kind: ActionReveal, Row: row, Col: col}, nil
	default:
		return Action{}, fmt.Errorf("autoplay: unknown action %q", kind)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
