// Package feed broadcasts the receiver status to websocket clients.
//
// Every client gets the last snapshot right after connecting and then
// each snapshot that differs from the previous one.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Path is where Run serves the websocket.
const Path = "/ws"

const sendQueue = 16

// Snapshot is the JSON message sent to the clients.
type Snapshot struct {
	Mode      string            `json:"mode"`
	Frequency uint16            `json:"frequency"`
	Seeking   bool              `json:"seeking"`
	Labels    map[string]string `json:"labels"`
	Stamp     int64             `json:"stamp"` // Unix ms
}

func (s Snapshot) sameStatus(o Snapshot) bool {
	if s.Mode != o.Mode || s.Frequency != o.Frequency || s.Seeking != o.Seeking || len(s.Labels) != len(o.Labels) {
		return false
	}
	for k, v := range s.Labels {
		if ov, ok := o.Labels[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the connected clients.
type Hub struct {
	log func(format string, v ...interface{})

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    *Snapshot
	lastMsg []byte
}

// NewHub returns an empty hub logging through logf.
func NewHub(logf func(format string, v ...interface{})) *Hub {
	return &Hub{
		log:     logf,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends s to every client unless it matches the previous
// snapshot. It reports whether s was sent. Slow clients miss messages
// instead of blocking the caller.
func (h *Hub) Publish(s Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && h.last.sameStatus(s) {
		return false
	}
	if s.Stamp == 0 {
		s.Stamp = time.Now().UnixMilli()
	}

	msg, err := json.Marshal(s)
	if err != nil {
		h.log("[feed] marshal: %v\n", err)
		return false
	}

	labels := make(map[string]string, len(s.Labels))
	for k, v := range s.Labels {
		labels[k] = v
	}
	s.Labels = labels
	h.last, h.lastMsg = &s, msg

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return true
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log("[feed] upgrade: %v\n", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}

	h.mu.Lock()
	if h.lastMsg != nil {
		c.send <- h.lastMsg
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log("[feed] client connected (%d total)\n", count)

	go func() {
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Incoming messages are dropped, reading only notices the disconnect.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			close(c.send)
			count := len(h.clients)
			h.mu.Unlock()
			h.log("[feed] client disconnected (%d total)\n", count)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Run serves the hub on addr until ctx is done.
func (h *Hub) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	h.log("[feed] listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
