package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/beatbounce/beatbounce/internal/auth"
)

// WSMessage is the envelope for all WebSocket communication.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client represents a connected player.
type Client struct {
	ID        int64
	Username  string
	SessionID string
	conn      *websocket.Conn
	send      chan WSMessage
}

// Hub manages all WebSocket clients and session-scoped delivery of spawn
// and judgment events.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]*Client
	sessions map[string]map[int64]*Client
	handler  MessageHandler
	secret   []byte
	insecure bool
	metrics  *Metrics
	logger   *slog.Logger

	readLimit    int64
	pingInterval time.Duration
}

// MessageHandler processes inbound messages from a client. HandleRTT
// receives ping round-trip samples for latency compensation.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg WSMessage)
	HandleRTT(client *Client, rtt time.Duration)
	HandleDisconnect(client *Client)
}

func NewHub(secret []byte, insecure bool, handler MessageHandler, metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:      make(map[int64]*Client),
		sessions:     make(map[string]map[int64]*Client),
		handler:      handler,
		secret:       secret,
		insecure:     insecure,
		metrics:      metrics,
		logger:       logger,
		readLimit:    4096,
		pingInterval: 30 * time.Second,
	}
}

// SetLimits overrides the per-connection read limit and ping cadence.
func (h *Hub) SetLimits(readLimit int64, pingInterval time.Duration) {
	if readLimit > 0 {
		h.readLimit = readLimit
	}
	if pingInterval > 0 {
		h.pingInterval = pingInterval
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ValidateToken(h.secret, r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.insecure,
	})
	if err != nil {
		h.logger.Error("ws accept", "err", err)
		return
	}
	conn.SetReadLimit(h.readLimit)

	client := &Client{
		ID:       claims.PlayerID,
		Username: claims.Username,
		conn:     conn,
		send:     make(chan WSMessage, 64),
	}

	h.register(client)
	defer h.unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writePump(ctx, client)
	h.readPump(ctx, client)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncrWSConn()
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	if c.SessionID != "" {
		if group, ok := h.sessions[c.SessionID]; ok {
			delete(group, c.ID)
			if len(group) == 0 {
				delete(h.sessions, c.SessionID)
			}
		}
	}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.DecrWSConn()
	}
	if h.handler != nil {
		h.handler.HandleDisconnect(c)
	}
}

// JoinSession adds a client to a session delivery group, leaving any
// previous one.
func (h *Hub) JoinSession(clientID int64, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	if c.SessionID != "" && c.SessionID != sessionID {
		if group, ok := h.sessions[c.SessionID]; ok {
			delete(group, c.ID)
		}
	}
	c.SessionID = sessionID
	if _, ok := h.sessions[sessionID]; !ok {
		h.sessions[sessionID] = make(map[int64]*Client)
	}
	h.sessions[sessionID][c.ID] = c
}

// LeaveSession detaches a client from its session group.
func (h *Hub) LeaveSession(clientID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok || c.SessionID == "" {
		return
	}
	if group, ok := h.sessions[c.SessionID]; ok {
		delete(group, c.ID)
		if len(group) == 0 {
			delete(h.sessions, c.SessionID)
		}
	}
	c.SessionID = ""
}

// BroadcastSession sends a message to every client attached to a session.
func (h *Hub) BroadcastSession(sessionID string, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	group, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	for _, c := range group {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full", "client", c.ID)
		}
	}
}

// SendTo sends a message to a specific client.
func (h *Hub) SendTo(clientID int64, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer func() {
		if err := c.conn.CloseNow(); err != nil {
			h.logger.Debug("close conn", "err", err)
		}
	}()
	for {
		var msg WSMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return
		}
		if h.handler != nil {
			h.handler.HandleMessage(ctx, c, msg)
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, c.conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			start := time.Now()
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
			if h.handler != nil {
				h.handler.HandleRTT(c, time.Since(start))
			}
		case <-ctx.Done():
			return
		}
	}
}
