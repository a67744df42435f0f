package events

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sigil-protocol/sigil-scan/internal/config"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client is one connected WebSocket consumer.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan Event
	hub  *Hub
}

// Hub maintains the set of active clients and broadcasts scan events to
// them. Slow clients are disconnected rather than allowed to back up
// the broadcast path.
type Hub struct {
	config   *config.EventsConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	nextID int
}

// NewHub creates a new event hub.
func NewHub(cfg *config.EventsConfig, logger *zap.Logger) *Hub {
	h := &Hub{
		config:     cfg,
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Run handles client registration, unregistration and broadcasting.
// It blocks; call it in its own goroutine.
func (h *Hub) Run() {
	h.logger.Info("Starting event hub")

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Event client connected",
		zap.String("client_id", client.id),
		zap.Int("active_clients", count),
	)
	h.publish(Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data:      ConnectionEvent{Action: "connected", ClientID: client.id},
	})
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("Event client disconnected",
			zap.String("client_id", client.id),
			zap.Int("active_clients", count),
		)
	}
}

func (h *Hub) broadcastEvent(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			// Client cannot keep up; drop it on the next unregister cycle.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// publish queues an event for broadcast, dropping it when the hub's
// buffer is full.
func (h *Hub) publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Debug("Event dropped, broadcast buffer full",
			zap.String("type", string(event.Type)))
	}
}

// BroadcastFinding publishes a finding event when enabled.
func (h *Hub) BroadcastFinding(requestID string, finding FindingEvent) {
	if !h.config.Enabled || !h.config.BroadcastFindings {
		return
	}
	h.publish(Event{
		Type:      EventTypeFinding,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data:      finding,
	})
}

// BroadcastRequest publishes a request event when enabled.
func (h *Hub) BroadcastRequest(requestID string, request RequestEvent) {
	if !h.config.Enabled || !h.config.BroadcastRequests {
		return
	}
	h.publish(Event{
		Type:      EventTypeRequest,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data:      request,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades an HTTP request to a hub connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.nextID++
	id := fmt.Sprintf("client-%d", h.nextID)
	h.mu.Unlock()

	client := &Client{
		id:   id,
		conn: conn,
		send: make(chan Event, 64),
		hub:  h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump delivers queued events and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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

// readPump drains the connection so control frames are processed and
// disconnects are noticed.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
