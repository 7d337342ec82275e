// Package ws streams pursuit events to websocket subscribers.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forgeline/pursuit/engine"
)

const (
	writeTimeout = 5 * time.Second

	// sendBuffer is the per-client event backlog. A client that falls
	// this far behind is disconnected.
	sendBuffer = 16
)

// Hub fans engine events out to connected websocket clients. It
// implements engine.Observer, so it plugs straight into an agent via
// engine.WithObserver. Each client gets its own writer goroutine and
// bounded send queue: OnEvent never waits on a slow peer, it drops the
// peer instead.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewHub creates a hub with no connected clients.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP upgrades the request and subscribes the connection to the
// event feed. The connection stays registered until the peer closes
// it, a write fails, or its send queue overflows.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	send := make(chan []byte, sendBuffer)
	h.clients[conn] = send
	h.mu.Unlock()

	go h.writeLoop(conn, send)

	// Drain incoming frames so close handshakes and pings are
	// processed; subscribers are not expected to send data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// writeLoop owns the connection's write side: it serializes payloads
// from the send queue and closes the connection once the queue closes.
func (h *Hub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for payload := range send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(conn)
			break
		}
	}
	conn.Close()
}

// OnEvent broadcasts the event as a JSON text frame to every client.
// Delivery is asynchronous; a client whose queue is full is dropped
// rather than blocking the caller.
func (h *Hub) OnEvent(ev engine.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WS] Failed to encode event %s: %v", ev.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- payload:
		default:
			log.Printf("[WS] Dropping subscriber %d events behind", sendBuffer)
			h.removeLocked(conn)
		}
	}
}

// ClientCount reports how many subscribers are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		h.removeLocked(conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

// removeLocked unregisters a client and closes its send queue, which
// makes its writeLoop close the connection. Safe to call twice for the
// same connection.
func (h *Hub) removeLocked(conn *websocket.Conn) {
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
}
