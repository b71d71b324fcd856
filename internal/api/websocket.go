package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Access is gated by the session token instead
	},
}

// Message represents a WebSocket message
type Message struct {
	Type     string      `json:"type"`
	RoundID  string      `json:"roundId,omitempty"`
	Identity string      `json:"identity,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	identity string
	hub      *Hub
}

// Hub maintains the set of active clients and routes round updates to the
// connections of the identity that played them
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	players    map[string]map[*Client]bool
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		players:    make(map[string]map[*Client]bool),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if _, exists := h.players[client.identity]; !exists {
				h.players[client.identity] = make(map[*Client]bool)
			}
			h.players[client.identity][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)

				delete(h.players[client.identity], client)
				// Clean up identities without connections
				if len(h.players[client.identity]) == 0 {
					delete(h.players, client.identity)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Connections returns the number of open connections for an identity
func (h *Hub) Connections(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.players[identity])
}

// SendToPlayer sends a message to every connection of an identity
func (h *Hub) SendToPlayer(identity string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.players[identity] {
		select {
		case client.send <- data:
		default:
			// Slow client, drop the update; the next one carries full state
		}
	}
}

// ServeClient upgrades the request and attaches the connection to identity
func (h *Hub) ServeClient(w http.ResponseWriter, r *http.Request, identity string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		identity: identity,
		hub:      h,
	}

	// Queue the welcome message before registering so it is always first
	welcomeData, _ := json.Marshal(Message{
		Type:     "welcome",
		Identity: identity,
		Data: map[string]string{
			"message": "Connected to blackjack game server",
		},
	})
	client.send <- welcomeData

	h.register <- client

	// Start goroutines for reading and writing
	go client.readPump()
	go client.writePump()
}

// readPump keeps the connection alive and detects when the peer goes away.
// Clients do not send game actions over the socket.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
