package history

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"minegem/internal/game"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_history.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetSession(t *testing.T) {
	store := testStore(t)

	id, err := store.CreateSession(&Session{
		GridSize:   5,
		MineCount:  3,
		Difficulty: "medium",
		BetAmount:  decimal.RequireFromString("12.50"),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session ID")
	}

	got, err := store.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.GridSize != 5 || got.MineCount != 3 {
		t.Errorf("grid/mines = %d/%d, want 5/3", got.GridSize, got.MineCount)
	}
	if !got.BetAmount.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("BetAmount = %s, want 12.50", got.BetAmount)
	}
	if got.Phase != string(game.PhasePlaying) {
		t.Errorf("Phase = %q, want playing", got.Phase)
	}
	if got.EndedAt != nil {
		t.Error("new session should have no ended_at")
	}
}

func TestEndSession(t *testing.T) {
	store := testStore(t)

	id, _ := store.CreateSession(&Session{GridSize: 4, MineCount: 2, Difficulty: "hard", BetAmount: decimal.NewFromInt(10)})

	err := store.EndSession(id, Outcome{
		Phase:        game.PhaseWon,
		Multiplier:   decimal.RequireFromString("1.3"),
		Earnings:     decimal.NewFromInt(36),
		FinalBalance: decimal.NewFromInt(1026),
		SafeReveals:  3,
	})
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	got, err := store.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Phase != string(game.PhaseWon) {
		t.Errorf("Phase = %q, want won", got.Phase)
	}
	if !got.Earnings.Equal(decimal.NewFromInt(36)) {
		t.Errorf("Earnings = %s, want 36", got.Earnings)
	}
	if !got.FinalBalance.Equal(decimal.NewFromInt(1026)) {
		t.Errorf("FinalBalance = %s, want 1026", got.FinalBalance)
	}
	if got.SafeReveals != 3 {
		t.Errorf("SafeReveals = %d, want 3", got.SafeReveals)
	}
	if got.EndedAt == nil {
		t.Error("ended session should have ended_at")
	}
}

func TestGetSessionMissing(t *testing.T) {
	store := testStore(t)
	if _, err := store.GetSession("nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestReveals(t *testing.T) {
	store := testStore(t)

	id, _ := store.CreateSession(&Session{GridSize: 4, MineCount: 2, Difficulty: "medium", BetAmount: decimal.NewFromInt(5)})

	moves := []struct {
		row, col int
		mine     bool
	}{
		{0, 0, false},
		{1, 2, false},
		{3, 3, true},
	}
	for i, m := range moves {
		if err := store.InsertReveal(id, i+1, m.row, m.col, m.mine); err != nil {
			t.Fatalf("InsertReveal %d: %v", i, err)
		}
	}

	reveals, err := store.Reveals(id)
	if err != nil {
		t.Fatalf("Reveals: %v", err)
	}
	if len(reveals) != 3 {
		t.Fatalf("len = %d, want 3", len(reveals))
	}
	for i, m := range moves {
		r := reveals[i]
		if r.Seq != i+1 || r.Row != m.row || r.Col != m.col || r.Mine != m.mine {
			t.Errorf("reveal %d = %+v, want %+v", i, r, m)
		}
	}
}

func TestListRecent(t *testing.T) {
	store := testStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.CreateSession(&Session{GridSize: 4, MineCount: 1, Difficulty: "easy", BetAmount: decimal.NewFromInt(int64(i + 1))}); err != nil {
			t.Fatalf("CreateSession %d: %v", i, err)
		}
	}

	sessions, err := store.ListRecent(2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("len = %d, want 2", len(sessions))
	}

	all, err := store.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}
