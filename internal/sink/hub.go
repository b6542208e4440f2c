// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/tevino/abool/v2"

	"github.com/relabs-tech/rmc_logger/internal/gps"
	"github.com/relabs-tech/rmc_logger/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// clientBuffer is how many messages a slow browser may lag behind before
// messages to it are dropped.
const clientBuffer = 64

type hubClient struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// offer queues b without blocking and reports whether it was accepted.
func (c *hubClient) offer(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *hubClient) shut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub is a sink that streams commits to WebSocket clients. It never blocks
// the commit path: a client that cannot keep up loses messages.
type Hub struct {
	session string
	clients cmap.ConcurrentMap[string, *hubClient]
	closed  *abool.AtomicBool
	latest  atomic.Pointer[FixMessage]
	dropped atomic.Int64
}

func NewHub(session string) *Hub {
	return &Hub{
		session: session,
		clients: cmap.New[*hubClient](),
		closed:  abool.New(),
	}
}

// ServeHTTP upgrades the request and registers the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.IsSet() {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("hub: websocket upgrade error: %v", err)
		return
	}

	id := uuid.NewString()
	c := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}
	if m := h.latest.Load(); m != nil {
		if b, err := json.Marshal(m); err == nil {
			c.offer(b)
		}
	}
	h.clients.Set(id, c)
	if h.closed.IsSet() {
		h.remove(id)
	}
	monitoring.Logf("hub: client %s connected from %s", id, r.RemoteAddr)

	go h.readLoop(id, c)
	h.writeLoop(id, c)
}

// readLoop discards client input and notices disconnects.
func (h *Hub) readLoop(id string, c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				monitoring.Logf("hub: client %s read error: %v", id, err)
			}
			h.remove(id)
			return
		}
	}
}

func (h *Hub) writeLoop(id string, c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			monitoring.Logf("hub: client %s write error: %v", id, err)
			h.remove(id)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
}

// remove unregisters a client and closes its queue exactly once.
func (h *Hub) remove(id string) {
	if c, ok := h.clients.Pop(id); ok {
		c.shut()
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int { return h.clients.Count() }

// Dropped reports messages discarded because a client queue was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Latest returns the most recent fix broadcast by the hub.
func (h *Hub) Latest() (FixMessage, bool) {
	m := h.latest.Load()
	if m == nil {
		return FixMessage{}, false
	}
	return *m, true
}

// Broadcast sends v as JSON to every connected client.
func (h *Hub) Broadcast(v interface{}) error {
	if h.closed.IsSet() {
		return ErrClosed
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.clients.IterCb(func(_ string, c *hubClient) {
		if !c.offer(b) {
			h.dropped.Add(1)
		}
	})
	return nil
}

// BroadcastFix records msg as the latest fix and broadcasts it.
func (h *Hub) BroadcastFix(msg FixMessage) error {
	if h.closed.IsSet() {
		return ErrClosed
	}
	h.latest.Store(&msg)
	return h.Broadcast(msg)
}

func (h *Hub) WriteFix(order uint64, fix gps.Fix) error {
	return h.BroadcastFix(NewFixMessage(h.session, order, fix))
}

func (h *Hub) Skip(order uint64, reason error) error {
	return h.Broadcast(NewSkipMessage(h.session, order, reason))
}

// Close disconnects every client.
func (h *Hub) Close() error {
	if !h.closed.SetToIf(false, true) {
		return ErrClosed
	}
	for _, id := range h.clients.Keys() {
		h.remove(id)
	}
	return nil
}
