package fanout

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultClientBuffer is the number of pending events a client may queue
// before further events to it are dropped.
const DefaultClientBuffer = 32

// Message is a broadcast as it travels between hubs.
type Message struct {
	Event  string          `json:"event"`
	RoomID string          `json:"room_id,omitempty"`
	Except string          `json:"except,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Client is a connection attached to this process.
type Client struct {
	ID     string
	Events chan *Message
}

// NewClient creates a client with a buffered event channel.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{ID: id, Events: make(chan *Message, buffer)}
}

// Hub routes messages to the clients connected to this process. It keeps no
// room state beyond which local client listens to which room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	log     *zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		log:     logger,
	}
}

// Register attaches a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister detaches a client, drops its room routes and closes its event
// channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	for roomID, members := range h.rooms {
		if _, ok := members[c.ID]; ok {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	close(c.Events)
}

// Subscribe routes roomID broadcasts to the client connID. Unknown clients
// are ignored; they live on another process.
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	members := h.rooms[roomID]
	if members == nil {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[connID] = c
}

// Unsubscribe stops routing roomID broadcasts to connID.
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// Deliver hands msg to every matching local client and returns how many
// received it. Slow clients lose the message instead of blocking the hub.
func (h *Hub) Deliver(msg *Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	if msg.RoomID != "" {
		targets = h.rooms[msg.RoomID]
	}

	delivered := 0
	for id, c := range targets {
		if id == msg.Except {
			continue
		}
		select {
		case c.Events <- msg:
			delivered++
		default:
			h.log.Warn().Str("conn_id", id).Str("event", msg.Event).Msg("client buffer full, dropping event")
		}
	}
	return delivered
}

// Clients returns the number of attached clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
