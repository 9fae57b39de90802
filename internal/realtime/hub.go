package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/foodbridge/foodbridge/pkg/logger"
	"github.com/foodbridge/foodbridge/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MiB

	defaultBufferSize = 64
)

// Message represents a JSON payload delivered over a realtime channel.
type Message struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// inbound is what connected clients may send: chat messages fanned out to
// everyone else, or direct notification echoes to a single recipient.
type inbound struct {
	Type        string `json:"type"`
	Content     any    `json:"content"`
	RecipientID string `json:"recipient_id,omitempty"`
}

// Hub tracks the live duplex channels per user. A user may hold several
// concurrent channels (multiple devices); delivery targets every one of them.
// The hub is constructed at process start and injected, never ambient state.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*connection]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
		log: logger.WithModule("realtime"),
	}
}

// Serve upgrades the HTTP connection to a WebSocket and registers the channel
// for the supplied user. Blocks until the channel closes; closing always
// unregisters this channel only, never the user's other channels.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := newConnection(h, conn, userID)
	h.register(client)

	go client.writeLoop()
	client.readLoop()
}

// SendTo delivers a message to every channel currently registered for the user.
// A user with no live channels is a no-op, not an error.
func (h *Hub) SendTo(userID string, message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[userID] {
		h.enqueue(client, message)
	}
}

// Broadcast delivers a message to every channel of every registered user,
// skipping all channels of the excluded user when excludeUserID is non-empty.
func (h *Hub) Broadcast(message Message, excludeUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, clients := range h.channels {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		for client := range clients {
			h.enqueue(client, message)
		}
	}
}

// ConnectionCount reports the number of live channels for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[userID])
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[client.userID] == nil {
		h.channels[client.userID] = make(map[*connection]struct{})
	}
	h.channels[client.userID][client] = struct{}{}
	metrics.RealtimeConnections.Inc()
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.channels[client.userID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.channels, client.userID)
	}
	metrics.RealtimeConnections.Dec()
}

func (h *Hub) enqueue(client *connection, message Message) {
	if client.trySend(message) {
		return
	}
	h.log.Warn("send buffer full; dropping channel", zap.String("user_id", client.userID))
	// Closing unregisters, which needs the hub write lock; SendTo and
	// Broadcast call enqueue while holding the read lock, so the close must
	// happen off this goroutine.
	go client.close()
}

// handleInbound routes a client-originated payload: chat goes to everyone but
// the sender, notification echoes go to the named recipient's channels.
func (h *Hub) handleInbound(client *connection, payload []byte) {
	var msg inbound
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.log.Debug("invalid payload", zap.String("user_id", client.userID), zap.Error(err))
		return
	}

	switch strings.ToLower(strings.TrimSpace(msg.Type)) {
	case "chat":
		h.Broadcast(Message{
			Type:    "chat",
			UserID:  client.userID,
			Content: msg.Content,
		}, client.userID)
	case "notification":
		if msg.RecipientID != "" {
			h.SendTo(msg.RecipientID, Message{
				Type:    "notification",
				Content: msg.Content,
			})
		}
	case "ping":
		h.enqueue(client, Message{Type: "pong"})
	default:
		h.log.Debug("unsupported message type",
			zap.String("user_id", client.userID), zap.String("type", msg.Type))
	}
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	userID string

	mu     sync.Mutex
	send   chan Message
	closed bool
	once   sync.Once
}

func newConnection(hub *Hub, conn *websocket.Conn, userID string) *connection {
	return &connection{
		hub:    hub,
		socket: conn,
		userID: userID,
		send:   make(chan Message, defaultBufferSize),
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		if len(payload) == 0 {
			continue
		}
		c.hub.handleInbound(c, payload)
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend reports whether the message was buffered. It never blocks.
func (c *connection) trySend(message Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
