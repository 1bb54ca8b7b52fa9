package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"minegem/internal/controller"
	"minegem/internal/game"
	"minegem/internal/persist"
)

func testServer(t *testing.T, seed int64) (*Server, *httptest.Server) {
	t.Helper()
	store, err := persist.New(t.TempDir(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("persist.New: %v", err)
	}
	ctrl := controller.New(store, nil, rand.New(rand.NewSource(seed)), log.New(io.Discard, "", 0))
	srv := NewServer(ctrl, nil)
	srv.logger = log.New(io.Discard, "", 0)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// predictMines mirrors the engine's sampling for the same seed.
func predictMines(seed int64, gridSize, mineCount int) map[game.Cell]bool {
	mines := make(map[game.Cell]bool, mineCount)
	for _, idx := range rand.New(rand.NewSource(seed)).Perm(gridSize * gridSize)[:mineCount] {
		mines[game.Cell{Row: idx / gridSize, Col: idx % gridSize}] = true
	}
	return mines
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t, 1)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	const seed = 9
	_, ts := testServer(t, seed)
	mines := predictMines(seed, 4, 2)

	// No session yet.
	resp, err := http.Get(ts.URL + "/api/v1/session")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /session status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	// Start a session.
	resp = postJSON(t, ts.URL+"/api/v1/session", controller.SetupInput{
		GridSize: 4, Mines: "2", Bet: "10", Difficulty: "medium",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /session status = %d, want 201", resp.StatusCode)
	}
	snap := decode[game.Snapshot](t, resp)
	if snap.Phase != game.PhasePlaying {
		t.Fatalf("phase = %s, want playing", snap.Phase)
	}

	// Reveal a known safe cell.
	var safe game.Cell
	found := false
	for r := 0; r < 4 && !found; r++ {
		for c := 0; c < 4 && !found; c++ {
			if !mines[game.Cell{Row: r, Col: c}] {
				safe = game.Cell{Row: r, Col: c}
				found = true
			}
		}
	}
	resp = postJSON(t, ts.URL+"/api/v1/session/reveal", safe)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /session/reveal status = %d, want 200", resp.StatusCode)
	}
	snap = decode[game.Snapshot](t, resp)
	if len(snap.Revealed) != 1 {
		t.Errorf("revealed = %d, want 1", len(snap.Revealed))
	}
	if snap.Earnings.String() != "11" {
		t.Errorf("earnings = %s, want 11", snap.Earnings)
	}

	// Cash out.
	resp = postJSON(t, ts.URL+"/api/v1/session/cashout", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /session/cashout status = %d, want 200", resp.StatusCode)
	}
	snap = decode[game.Snapshot](t, resp)
	if snap.Phase != game.PhaseWon {
		t.Errorf("phase = %s, want won", snap.Phase)
	}

	// Profile reflects the fold.
	resp, err = http.Get(ts.URL + "/api/v1/profile")
	if err != nil {
		t.Fatal(err)
	}
	profileBody := decode[map[string]json.RawMessage](t, resp)
	if !strings.Contains(string(profileBody["stats"]), `"total_wins": 1`) &&
		!strings.Contains(string(profileBody["stats"]), `"total_wins":1`) {
		t.Errorf("profile stats missing win: %s", profileBody["stats"])
	}
}

func TestRejectionCodes(t *testing.T) {
	_, ts := testServer(t, 1)

	tests := []struct {
		name       string
		input      controller.SetupInput
		wantStatus int
		wantType   string
	}{
		{"bet exceeds balance", controller.SetupInput{GridSize: 4, Mines: "2", Bet: "99999", Difficulty: "medium"}, http.StatusUnprocessableEntity, ErrTypeBetExceedsBalance},
		{"too many mines", controller.SetupInput{GridSize: 4, Mines: "20", Bet: "10", Difficulty: "medium"}, http.StatusUnprocessableEntity, ErrTypeTooManyMines},
		{"bad numbers", controller.SetupInput{GridSize: 4, Mines: "x", Bet: "10", Difficulty: "medium"}, http.StatusBadRequest, ErrTypeInvalidInput},
		{"non-positive", controller.SetupInput{GridSize: 4, Mines: "2", Bet: "0", Difficulty: "medium"}, http.StatusUnprocessableEntity, ErrTypeNonPositiveValue},
	}
	for _, tt := range tests {
		resp := postJSON(t, ts.URL+"/api/v1/session", tt.input)
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.wantStatus)
		}
		apiErr := decode[apiError](t, resp)
		if apiErr.Type != tt.wantType {
			t.Errorf("%s: type = %s, want %s", tt.name, apiErr.Type, tt.wantType)
		}
	}
}

func TestPromoRejection(t *testing.T) {
	_, ts := testServer(t, 1)

	resp := postJSON(t, ts.URL+"/api/v1/promo", map[string]string{"code": "definitely wrong"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	apiErr := decode[apiError](t, resp)
	if apiErr.Type != ErrTypeInvalidCode {
		t.Errorf("type = %s, want %s", apiErr.Type, ErrTypeInvalidCode)
	}
}

func TestWebsocketStream(t *testing.T) {
	const seed = 3
	_, ts := testServer(t, seed)
	mines := predictMines(seed, 4, 2)

	// Start a session first; subscribers receive the current state on connect.
	resp := postJSON(t, ts.URL+"/api/v1/session", controller.SetupInput{
		GridSize: 4, Mines: "2", Bet: "10", Difficulty: "medium",
	})
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap game.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Phase != game.PhasePlaying {
		t.Fatalf("streamed phase = %s, want playing", snap.Phase)
	}

	// Drive a reveal over the same connection.
	var safe game.Cell
	found := false
	for r := 0; r < 4 && !found; r++ {
		for c := 0; c < 4 && !found; c++ {
			if !mines[game.Cell{Row: r, Col: c}] {
				safe = game.Cell{Row: r, Col: c}
				found = true
			}
		}
	}
	if err := conn.WriteJSON(map[string]any{"op": "reveal", "row": safe.Row, "col": safe.Col}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap.Revealed) != 1 {
		t.Errorf("streamed revealed = %d, want 1", len(snap.Revealed))
	}
}
