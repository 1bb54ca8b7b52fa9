package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"minegem/internal/game"
)

var upgrader = websocket.Upgrader{
	// The server binds to loopback only; the presentation layer connects
	// from a local origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans session snapshots out to websocket subscribers.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// broadcast pushes a snapshot to every subscriber, dropping dead connections.
func (h *hub) broadcast(snap game.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteJSON(snap); err != nil {
			c.Close()
			delete(h.conns, c)
		}
	}
}

// send writes one message to a single subscriber under the hub lock.
func (h *hub) send(c *websocket.Conn, v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.WriteJSON(v)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
		delete(h.conns, c)
	}
}

// wsCommand is a session command sent over the stream connection.
type wsCommand struct {
	Op  string `json:"op"` // "reveal" or "cashout"
	Row int    `json:"row"`
	Col int    `json:"col"`
}

// GET /ws — subscribes to session snapshots. The client may also drive the
// session over the same connection with reveal/cashout commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade: %v", err)
		return
	}
	s.hub.add(c)
	defer func() {
		s.hub.remove(c)
		c.Close()
	}()

	// Push the current state immediately when a session exists.
	if snap, err := s.ctrl.Snapshot(); err == nil {
		if err := s.hub.send(c, snap); err != nil {
			return
		}
	}

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("ws read: %v", err)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			_ = s.hub.send(c, apiError{Type: ErrTypeInvalidInput, Message: "malformed command"})
			continue
		}

		var snap game.Snapshot
		switch cmd.Op {
		case "reveal":
			snap, err = s.ctrl.Reveal(cmd.Row, cmd.Col)
		case "cashout":
			snap, err = s.ctrl.CashOut()
		default:
			_ = s.hub.send(c, apiError{Type: ErrTypeInvalidInput, Message: "unknown op"})
			continue
		}
		if err != nil {
			_, code := rejectionStatus(err)
			_ = s.hub.send(c, apiError{Type: code, Message: err.Error()})
			continue
		}
		s.hub.broadcast(snap)
	}
}
