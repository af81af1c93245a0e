package websocket

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. A full fleet is a few hundred
	// bytes of JSON.
	maxMessageSize = 8192

	// Outbound frames buffered per client before it is dropped as too slow.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Handler receives connection lifecycle callbacks and decoded client frames.
// OnDisconnect is called exactly once per connection, after its last
// OnMessage.
type Handler interface {
	OnConnect(connID string)
	OnMessage(connID string, msg Inbound)
	OnDisconnect(connID string)
}

type frame struct {
	messageType int
	data        []byte
}

// Client is one websocket connection
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan frame
	id    string
	codec Codec
}

// ID returns the connection id the gateway binds rooms to
func (c *Client) ID() string {
	return c.id
}

// Hub owns every live connection and delivers frames to them. Send and
// Broadcast enqueue synchronously, so frames sent by one goroutine reach a
// client in the order they were sent.
type Hub struct {
	logger *slog.Logger
	newID  func() string

	mu      sync.RWMutex
	handler Handler
	clients map[string]*Client
}

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		newID:   uuid.NewString,
		clients: make(map[string]*Client),
	}
}

// SetHandler installs the receiver of client frames. Connections accepted
// before a handler is set only receive frames.
func (h *Hub) SetHandler(handler Handler) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
}

// ServeWS upgrades the request and starts the client pumps. The optional
// ?codec=msgpack query parameter switches the connection to binary frames.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	codec, err := CodecFor(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan frame, sendBuffer),
		id:    h.newID(),
		codec: codec,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Send delivers one event to one connection. It reports false when the
// connection is gone or had to be dropped.
func (h *Hub) Send(connID, event string, data any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	payload, err := client.codec.Encode(event, data)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return false
	}
	return h.enqueueLocked(client, frame{messageType: client.codec.MessageType(), data: payload})
}

// Broadcast delivers one event to every connection. Clients whose codec
// cannot encode the event are skipped; the rest still receive it.
func (h *Hub) Broadcast(event string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	encoded := make(map[string][]byte, 2)
	failed := make(map[string]bool)
	for _, client := range h.clients {
		name := client.codec.Name()
		if failed[name] {
			continue
		}
		payload, ok := encoded[name]
		if !ok {
			var err error
			payload, err = client.codec.Encode(event, data)
			if err != nil {
				h.logger.Error("failed to encode broadcast", "event", event, "codec", name, "error", err)
				failed[name] = true
				continue
			}
			encoded[name] = payload
		}
		h.enqueueLocked(client, frame{messageType: client.codec.MessageType(), data: payload})
	}
}

// ConnectionCount returns the number of live connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection. Their handlers still see OnDisconnect.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		h.unregisterLocked(client)
	}
}

func (h *Hub) enqueueLocked(client *Client, f frame) bool {
	select {
	case client.send <- f:
		return true
	default:
		// Client's send channel is full, close it
		h.logger.Warn("dropping slow client", "conn_id", client.id)
		h.unregisterLocked(client)
		return false
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	handler := h.handler
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client registered", "conn_id", client.id, "codec", client.codec.Name(), "clients", total)
	if handler != nil {
		handler.OnConnect(client.id)
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	h.unregisterLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client unregistered", "conn_id", client.id, "clients", total)
}

// unregisterLocked closes the send channel at most once
func (h *Hub) unregisterLocked(client *Client) {
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
	}
}

func (h *Hub) currentHandler() Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}

// dispatch hands one frame to the handler. A panic while handling a frame
// is logged and the connection stays up.
func (h *Hub) dispatch(client *Client, handler Handler, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling frame", "conn_id", client.id, "panic", fmt.Sprint(r))
		}
	}()

	msg, err := client.codec.Decode(data)
	if err != nil {
		h.logger.Debug("dropping malformed frame", "conn_id", client.id, "error", err)
		return
	}
	handler.OnMessage(client.id, msg)
}

// readPump pumps messages from the WebSocket connection to the handler
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		if handler := c.hub.currentHandler(); handler != nil {
			handler.OnDisconnect(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket error", "conn_id", c.id, "error", err)
			}
			break
		}
		if handler := c.hub.currentHandler(); handler != nil {
			c.hub.dispatch(c, handler, data)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// event is its own frame so binary frames stay decodable.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(f.messageType, f.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
