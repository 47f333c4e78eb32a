package expense

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

const wsWriteTimeout = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// hub tracks the live websocket connections and fans snapshots out to them.
// Each connection carries its own write lock: gorilla permits only one
// concurrent writer, and both the initial snapshot and broadcasts go
// through writeTo.
type hub struct {
	logger hclog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

func newHub(logger hclog.Logger) *hub {
	return &hub{
		logger: logger,
		conns:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = &sync.Mutex{}
	h.mu.Unlock()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// writeTo sends one payload to one registered connection.
func (h *hub) writeTo(conn *websocket.Conn, payload any) error {
	h.mu.Lock()
	lock, ok := h.conns[conn]
	h.mu.Unlock()
	if !ok {
		return websocket.ErrCloseSent
	}

	lock.Lock()
	defer lock.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(payload)
}

// broadcast sends the payload to every connection, dropping the ones whose
// write fails.
func (h *hub) broadcast(payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := h.writeTo(conn, payload); err != nil {
			h.logger.Debug("drop websocket client", "error", err)
			h.remove(conn)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
