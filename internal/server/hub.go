package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// hub fans task events out to every connected websocket. One connection per
// session; the client never publishes on this channel, so inbound frames are
// read and discarded until the peer goes away.
type hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{conns: make(map[*websocket.Conn]struct{}), logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
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
	_ = c.Close()
}

// broadcast sends one JSON message to every open connection. A failed write
// drops that connection; the others are unaffected.
func (h *hub) broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("hub: marshal broadcast: %v", err)
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Printf("hub: write failed, dropping connection: %v", err)
			h.remove(c)
		}
	}
}

func (h *hub) taskUpdate() {
	h.broadcast(map[string]any{"type": "task_update"})
}

func (h *hub) taskDelete(taskID int64) {
	h.broadcast(map[string]any{"type": "task_delete", "task_id": taskID})
}

// handleWS authenticates the handshake token from the URL and upgrades.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := s.authenticate(token); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("hub: upgrade failed: %v", err)
		return
	}
	s.hub.add(conn)
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
