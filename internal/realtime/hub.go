// Package realtime pushes dispatch events to connected websocket clients, one channel per org.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types published by the ticket and invoice services
const (
	EventTicketCreated   = "ticket.created"
	EventTicketApproved  = "ticket.approved"
	EventTicketRejected  = "ticket.rejected"
	EventTicketDeleted   = "ticket.deleted"
	EventInvoiceCreated  = "invoice.created"
	EventInvoiceUpdated  = "invoice.updated"
	EventInvoiceStatus   = "invoice.status_changed"
	EventStockChanged    = "stock.changed"
	sendBufferSize       = 64
	writeWait            = 10 * time.Second
	pongWait             = 60 * time.Second
	pingPeriod           = (pongWait * 9) / 10
	maxInboundMessageLen = 512
)

// Event is the JSON envelope written to clients
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sentAt"`
}

type client struct {
	hub   *Hub
	orgID string
	conn  *websocket.Conn
	send  chan []byte
}

type message struct {
	orgID string
	data  []byte
}

// Hub keeps the set of connected clients per org. A nil *Hub is valid and drops every event.
type Hub struct {
	clients    map[string]map[*client]struct{}
	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewHub creates a hub. allowedOrigins follows the CORS configuration; "*" allows any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run dispatches registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]struct{})
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.orgID]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.orgID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.String("org_id", c.orgID))
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[m.orgID] {
				select {
				case c.send <- m.data:
				default:
					// Slow consumer
					close(c.send)
					delete(h.clients[m.orgID], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.orgID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
		h.logger.Debug("websocket client disconnected", zap.String("org_id", c.orgID))
	}
	if len(set) == 0 {
		delete(h.clients, c.orgID)
	}
}

// Publish queues an event for every client of the org. It never blocks the caller.
func (h *Hub) Publish(orgID, eventType string, payload interface{}) {
	if h == nil || orgID == "" {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.logger.Warn("failed to encode realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{orgID: orgID, data: data}:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping event",
			zap.String("type", eventType),
			zap.String("org_id", orgID))
	}
}

// ClientCount returns the number of connected clients for an org
func (h *Hub) ClientCount(orgID string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orgID])
}

// ServeWS upgrades the request and attaches the connection to the org. The caller has already
// authenticated the request.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, orgID string) {
	if h == nil {
		http.Error(w, "realtime updates are disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{hub: h, orgID: orgID, conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundMessageLen)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
