package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"minegem/internal/controller"
	"minegem/internal/history"
)

// GET /api/v1/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.ctrl.Stats(),
		"leaderboard": s.ctrl.Leaderboard(),
	})
}

// GET /api/v1/leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": s.ctrl.Leaderboard()})
}

// POST /api/v1/session
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var in controller.SetupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Type: ErrTypeInvalidInput, Message: "malformed request body"})
		return
	}
	snap, err := s.ctrl.StartSession(in)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	s.hub.broadcast(snap)
	writeJSON(w, http.StatusCreated, snap)
}

// GET /api/v1/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Snapshot()
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /api/v1/session/reveal
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Row int `json:"row"`
		Col int `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Type: ErrTypeInvalidInput, Message: "malformed request body"})
		return
	}
	snap, err := s.ctrl.Reveal(in.Row, in.Col)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	s.hub.broadcast(snap)
	writeJSON(w, http.StatusOK, snap)
}

// POST /api/v1/session/cashout
func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.CashOut()
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	s.hub.broadcast(snap)
	writeJSON(w, http.StatusOK, snap)
}

// POST /api/v1/promo
func (s *Server) handlePromo(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Type: ErrTypeInvalidInput, Message: "malformed request body"})
		return
	}
	if err := s.ctrl.ClaimPromo(in.Code, time.Now()); err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": s.ctrl.Stats()})
}

// PUT /api/v1/sound
func (s *Server) handleSound(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Type: ErrTypeInvalidInput, Message: "malformed request body"})
		return
	}
	s.ctrl.SetSound(in.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"sound_enabled": in.Enabled})
}

// GET /api/v1/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": []history.Session{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.hist.ListRecent(limit)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	if sessions == nil {
		sessions = []history.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// GET /api/v1/history/{id}
func (s *Server) handleHistorySession(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeJSON(w, http.StatusNotFound, apiError{Type: ErrTypeNoSession, Message: "history disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	sess, err := s.hist.GetSession(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, apiError{Type: ErrTypeNoSession, Message: "session not found"})
			return
		}
		s.writeRejection(w, err)
		return
	}
	reveals, err := s.hist.Reveals(id)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess, "reveals": reveals})
}
