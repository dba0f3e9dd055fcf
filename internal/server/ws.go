package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/projmap/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// writeWait bounds a single broadcast write.
const writeWait = time.Second

// SignalHandler broadcasts the pipeline status to WebSocket clients whenever
// a new frame was processed or the cue moved.
type SignalHandler struct {
	pipeline Pipeline
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	stopCh   chan struct{}
	once     sync.Once
}

// NewSignalHandler creates a SignalHandler polling p every interval.
func NewSignalHandler(p Pipeline, interval time.Duration) *SignalHandler {
	h := &SignalHandler{
		pipeline: p,
		clients:  make(map[*websocket.Conn]bool),
		stopCh:   make(chan struct{}),
	}
	go h.broadcast(interval)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SignalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// New clients get the current state right away.
	if msg, err := json.Marshal(h.pipeline.Status()); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *SignalHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster. Connected clients stay open until they leave.
func (h *SignalHandler) Close() {
	h.once.Do(func() { close(h.stopCh) })
}

// changed reports whether cur carries anything new compared to prev.
func changed(prev, cur app.Status) bool {
	return prev.Frames != cur.Frames || prev.Cue != cur.Cue || prev.Enabled != cur.Enabled
}

// broadcast sends the status to all connected clients when it changes.
func (h *SignalHandler) broadcast(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last app.Status
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		st := h.pipeline.Status()
		if !changed(last, st) {
			continue
		}
		last = st

		msg, err := json.Marshal(st)
		if err != nil {
			continue
		}

		// Registered conns are only written from here.
		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
