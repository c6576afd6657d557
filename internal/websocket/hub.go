package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"smartsahuji/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins; the token query param is the gate
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON frame pushed to clients
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client represents a single connected WebSocket client of one user
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte
}

type delivery struct {
	userID  string
	message []byte
}

// Hub keeps the connected clients and routes every message to the clients
// of exactly one user.
type Hub struct {
	clients    map[string]map[*Client]bool
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	log        *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run is the dispatch loop. It owns the client map and returns when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return
		case client := <-h.register:
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.UserID] = set
			}
			set[client] = true
			h.log.Debug("websocket client connected", zap.String("user_id", client.UserID))
		case client := <-h.unregister:
			h.remove(client)
		case d := <-h.deliver:
			for client := range h.clients[d.userID] {
				select {
				case client.Send <- d.message:
				default:
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	h.log.Debug("websocket client disconnected", zap.String("user_id", client.UserID))
}

// Publish queues an event for every connection of userID. It never blocks
// the caller; events are dropped when the hub is saturated.
func (h *Hub) Publish(userID, event string, data interface{}) {
	msg, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.log.Error("failed to encode websocket event", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, message: msg}:
	default:
		h.log.Warn("websocket hub saturated, event dropped", zap.String("event", event))
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// flush queued messages in the same frame
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive until the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("websocket read failed", zap.Error(err))
			}
			break
		}
	}
}

// ServeWs upgrades an authenticated request. The access token travels in the
// token query parameter because browsers cannot set headers on upgrades.
func ServeWs(hub *Hub, c *gin.Context, tokens *auth.TokenManager) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	principal, err := tokens.Parse(tokenString)
	if err != nil {
		hub.log.Info("websocket connection rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{Hub: hub, Conn: conn, UserID: principal.UserID.String(), Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
