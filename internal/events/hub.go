package events

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/domain"
)

// Websocket timings.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	clientQueue    = 256
)

// StateProvider returns the current snapshot for a task, or nil if unknown.
// The hub sends it to a client right after it subscribes so late joiners
// start from the current state instead of waiting for the next change.
type StateProvider func(taskID string) any

// clientCommand is a message sent by a browser over the socket.
type clientCommand struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics,omitempty"`
}

// Hub bridges bus subscriptions to websocket clients.
type Hub struct {
	bus        Subscriber
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	mu            sync.RWMutex
	clients       map[*Client]struct{}
	stateProvider StateProvider
}

// NewHub creates a hub reading from bus. allowedOrigins empty means any origin.
func NewHub(bus Subscriber, logger zerolog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		bus:        bus,
		logger:     logger.With().Str("component", "ws_hub").Logger(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// SetStateProvider sets the function used for initial state sync.
func (h *Hub) SetStateProvider(fn StateProvider) {
	h.mu.Lock()
	h.stateProvider = fn
	h.mu.Unlock()
}

// Run owns client registration until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.quit)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.shutdown()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", total).Msg("client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.shutdown()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", total).Msg("client disconnected")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and subscribes the client to the
// task given by the taskId query parameter. More topics can be added later
// with a {"type":"subscribe","topics":[...]} message.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientQueue),
		subs: make(map[string]*Subscription),
		done: make(chan struct{}),
	}
	select {
	case h.register <- c:
	case <-h.quit:
		_ = conn.Close()
		return
	}

	if taskID := r.URL.Query().Get("taskId"); taskID != "" {
		c.subscribe(taskID)
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) initialState(taskID string) ([]byte, bool) {
	h.mu.RLock()
	provider := h.stateProvider
	h.mu.RUnlock()

	if provider == nil {
		return nil, false
	}
	state := provider(taskID)
	if state == nil {
		return nil, false
	}
	data, err := json.Marshal(domain.Event{
		Topic:     taskID,
		Type:      domain.EventState,
		Data:      state,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("task_id", taskID).Msg("initial state marshal failed")
		return nil, false
	}
	return data, true
}

// Client is one websocket connection with its task subscriptions.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	subs   map[string]*Subscription
	done   chan struct{}
	closed bool
}

// subscribe sends the current snapshot and then every event published after
// it. The snapshot is read before subscribing so no older queued event can
// follow it.
func (c *Client) subscribe(taskID string) {
	if !c.canSubscribe(taskID) {
		return
	}
	data, hasState := c.hub.initialState(taskID)

	c.mu.Lock()
	if c.closed || c.subs[taskID] != nil {
		c.mu.Unlock()
		return
	}
	sub := c.hub.bus.Subscribe(taskID)
	c.subs[taskID] = sub
	c.mu.Unlock()

	if hasState {
		c.enqueue(data)
	}
	go c.forward(sub)
}

func (c *Client) canSubscribe(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.subs[taskID]
	return !c.closed && !exists
}

func (c *Client) unsubscribe(taskID string) {
	c.mu.Lock()
	sub, ok := c.subs[taskID]
	delete(c.subs, taskID)
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// forward pumps one bus subscription into the client's send queue.
func (c *Client) forward(sub *Subscription) {
	for ev := range sub.C {
		data, err := json.Marshal(ev)
		if err != nil {
			c.hub.logger.Warn().Err(err).Str("task_id", ev.Topic).Msg("event marshal failed")
			continue
		}
		if !c.enqueue(data) {
			return
		}
	}
}

// enqueue queues data without blocking. Returns false once the client is gone.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
	case <-c.done:
		return false
	default:
		c.hub.logger.Debug().Msg("client send queue full, message dropped")
	}
	return true
}

// shutdown closes subscriptions and signals the pumps. Called with hub.mu held.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	close(c.done)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		c.handleCommand(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

func (c *Client) handleCommand(message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		return
	}
	switch cmd.Type {
	case "subscribe":
		for _, t := range cmd.Topics {
			c.subscribe(t)
		}
	case "unsubscribe":
		for _, t := range cmd.Topics {
			c.unsubscribe(t)
		}
	case "request_sync":
		c.mu.Lock()
		topics := make([]string, 0, len(c.subs))
		for t := range c.subs {
			topics = append(topics, t)
		}
		c.mu.Unlock()
		for _, t := range topics {
			if data, ok := c.hub.initialState(t); ok {
				c.enqueue(data)
			}
		}
	}
}
