// Package api exposes the engine command and event surfaces to the
// presentation layer as a loopback HTTP API plus a websocket state stream.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"minegem/internal/controller"
	"minegem/internal/history"
)

// Server handles HTTP requests from the presentation layer.
type Server struct {
	ctrl       *controller.Controller
	hist       *history.Store // optional
	logger     *log.Logger
	httpServer *http.Server
	hub        *hub
	startTime  time.Time
}

// NewServer creates an API server around a controller. hist may be nil.
func NewServer(ctrl *controller.Controller, hist *history.Store) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	return &Server{
		ctrl:      ctrl,
		hist:      hist,
		logger:    logger,
		hub:       newHub(),
		startTime: time.Now(),
	}
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(s.logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/profile", s.handleProfile)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/session", s.handleStartSession)
		r.Get("/session", s.handleSession)
		r.Post("/session/reveal", s.handleReveal)
		r.Post("/session/cashout", s.handleCashOut)
		r.Post("/promo", s.handlePromo)
		r.Put("/sound", s.handleSound)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistorySession)
	})

	r.Get("/ws", s.handleWS)

	return r
}

// Start binds the listener and serves in a goroutine. It returns once the
// socket is bound.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Printf("listening on %s", ln.Addr())
	go func() {
		_ = s.httpServer.Serve(ln)
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server and closes stream subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// writeJSON writes a JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeRejection writes a structured rejection for a domain error.
func (s *Server) writeRejection(w http.ResponseWriter, err error) {
	status, code := rejectionStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Printf("internal error: %v", err)
	}
	writeJSON(w, status, apiError{Type: code, Message: err.Error()})
}
