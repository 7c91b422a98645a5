package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/logging"
)

// Message types of the WebSocket protocol.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// EventNotification is the event_type of every relayed notification.
	EventNotification = "zwave.notification"

	wsSendBufferSize = 256
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WSFilter selects the notifications a client receives. Each non-empty
// list must contain the event's home, address or type; an empty filter
// matches everything.
type WSFilter struct {
	Homes []string `json:"homes,omitempty"` // "0xc0ffee01"
	Nodes []string `json:"nodes,omitempty"` // "0xc0ffee01.5"
	Types []string `json:"types,omitempty"` // "value_changed"
}

func (f *WSFilter) matches(ev NotificationEvent) bool {
	if len(f.Homes) > 0 && !slices.Contains(f.Homes, ev.HomeID) {
		return false
	}
	if len(f.Nodes) > 0 && !slices.Contains(f.Nodes, ev.Address) {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, ev.Type.String())
}

// Hub fans notification events out to WebSocket clients.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connection. It receives nothing until it subscribes.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	mu     sync.RWMutex
	filter *WSFilter
}

// Origins are enforced by the CORS middleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{cfg: cfg, logger: logger, clients: make(map[*WSClient]struct{})}
}

// Run disconnects every client once ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
		c.conn.Close() //nolint:errcheck // Unblocks readPump
	}
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.shutdown()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast queues ev for every client whose filter matches. Slow clients
// whose buffer is full miss the event.
func (h *Hub) Broadcast(ev NotificationEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal notification event", "error", err)
		return
	}
	frame, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: EventNotification,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.wants(ev) {
			c.enqueue(frame)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the request and starts the client's pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeUnavailable(w, "notification stream not started")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, wsSendBufferSize)
	c := &WSClient{hub: s.hub, conn: conn, send: send}
	s.hub.add(c)
	go c.writePump(send)
	go c.readPump()
}

// shutdown closes the send channel exactly once; writePump then sends a
// close frame and exits.
func (c *WSClient) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.send)
		c.send = nil
		c.mu.Unlock()
	})
}

// enqueue drops data when the client is gone or its buffer is full.
func (c *WSClient) enqueue(data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.send == nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) wants(ev NotificationEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter != nil && c.filter.matches(ev)
}

func (c *WSClient) keepAlive() (ping, deadline time.Duration) {
	ping = time.Duration(c.hub.cfg.PingInterval) * time.Second
	return ping, ping + time.Duration(c.hub.cfg.PongTimeout)*time.Second
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close() //nolint:errcheck // Already finished
	}()

	_, deadline := c.keepAlive()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(deadline)) }

	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	extend() //nolint:errcheck // A failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers that ignore protocol pings stay alive by talking.
		extend() //nolint:errcheck // A failed deadline surfaces as a read error
		c.handleMessage(data)
	}
}

// writePump owns the connection's writes. send is the channel the client
// was created with, since shutdown clears the field.
func (c *WSClient) writePump(send <-chan []byte) {
	ping, _ := c.keepAlive()
	writeWait := time.Duration(c.hub.cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Ends readPump too
	}()

	for {
		kind, data := websocket.PingMessage, []byte(nil)
		select {
		case msg, ok := <-send:
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
		}
		//nolint:errcheck // A failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		filter := &WSFilter{}
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, filter); err != nil {
				c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid subscribe filter"})
				return
			}
		}
		c.mu.Lock()
		c.filter = filter
		c.mu.Unlock()
		c.hub.logger.Debug("websocket client subscribed",
			"homes", filter.Homes, "nodes", filter.Nodes, "types", filter.Types)
		c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": filter})
	case WSTypeUnsubscribe:
		c.mu.Lock()
		c.filter = nil
		c.mu.Unlock()
		c.reply(msg.ID, WSTypeResponse, map[string]bool{"unsubscribed": true})
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	msg := WSMessage{Type: msgType, ID: id, Timestamp: timestamp()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		msg.Payload = raw
	}
	if data, err := json.Marshal(msg); err == nil {
		c.enqueue(data)
	}
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339) }
