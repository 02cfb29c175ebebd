package websocket

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Hub tracks live connections per user. Reminder and batch notifications
// go to one user; Broadcast reaches every connection.
type Hub struct {
	// users maps a user id to that user's open connections.
	users map[string]map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mutex sync.RWMutex
}

// Client is one open connection.
type Client struct {
	send   chan []byte
	userID string
}

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run serializes registration and broadcast. It never returns.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.add(client)
			h.mutex.Unlock()
			log.Printf("WebSocket client connected. User ID: %s", client.userID)

		case client := <-h.unregister:
			h.mutex.Lock()
			h.remove(client)
			h.mutex.Unlock()
			log.Printf("WebSocket client disconnected. User ID: %s", client.userID)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for _, conns := range h.users {
				for client := range conns {
					h.deliver(client, message)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// add, remove and deliver expect the caller to hold the write lock.
func (h *Hub) add(client *Client) {
	conns, ok := h.users[client.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.users[client.userID] = conns
	}
	conns[client] = struct{}{}
}

// remove closes the client's channel once and forgets users with no
// connections left.
func (h *Hub) remove(client *Client) {
	conns := h.users[client.userID]
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.users, client.userID)
	}
}

// deliver drops a client whose buffer is full.
func (h *Hub) deliver(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		return true
	default:
		h.remove(client)
		return false
	}
}

// BroadcastToUser sends message to every connection of userID.
func (h *Hub) BroadcastToUser(userID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	h.mutex.Lock()
	sent, dropped := 0, 0
	for client := range h.users[userID] {
		if h.deliver(client, data) {
			sent++
		} else {
			dropped++
		}
	}
	h.mutex.Unlock()

	if sent+dropped > 0 {
		log.Printf("BroadcastToUser: user=%s sent=%d dropped=%d", userID, sent, dropped)
	}
}

// Broadcast queues message for every connection.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Println("Broadcast channel is full")
	}
}

// GetClientCount returns the number of open connections.
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, conns := range h.users {
		n += len(conns)
	}
	return n
}

// ConnectedUsers returns the sorted ids of users with an open connection.
func (h *Hub) ConnectedUsers() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]string, 0, len(h.users))
	for id := range h.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ServeFiberWS handles Fiber websocket connections
func (h *Hub) ServeFiberWS(c *fiberws.Conn, userID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ServeFiberWS panic for user %s: %v", userID, r)
		}
	}()

	client := &Client{
		send:   make(chan []byte, 256),
		userID: userID,
	}

	h.register <- client

	// Write pump in a goroutine, read pump inline so the Fiber connection
	// stays owned by this handler.
	go h.fiberWritePump(client, c)
	h.fiberReadPump(client, c)
}

// fiberWritePump handles writing to Fiber websocket connections
func (h *Hub) fiberWritePump(client *Client, c *fiberws.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if r := recover(); r != nil {
			log.Printf("fiberWritePump panic for user %s: %v", client.userID, r)
		}
		c.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.WriteMessage(fiberws.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(fiberws.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for user %s: %v", client.userID, err)
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(fiberws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// fiberReadPump handles reading from Fiber websocket connections
func (h *Hub) fiberReadPump(client *Client, c *fiberws.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("fiberReadPump panic for user %s: %v", client.userID, r)
		}
		h.unregister <- client
	}()

	c.SetReadLimit(maxMessageSize)
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if fiberws.IsUnexpectedCloseError(err, fiberws.CloseGoingAway, fiberws.CloseAbnormalClosure) {
				log.Printf("WebSocket unexpected close for user %s: %v", client.userID, err)
			}
			return
		}
		// Clients only receive; inbound frames are ignored.
	}
}
