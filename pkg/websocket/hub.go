package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message represents the standard message format exchanged over WebSocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Hub fans messages out to the clients subscribed to each room.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || allowed["*"]
			},
		},
	}
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

// Run owns room membership. It must be running before clients connect.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
				log.Printf("Created room %s", client.room)
			}
			h.rooms[client.room][client] = true
			log.Printf("Client %p joined room %s. Total: %d", client, client.room, len(h.rooms[client.room]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.room]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					log.Printf("Client %p left room %s. Remaining: %d", client, client.room, len(room))
				}
				if len(room) == 0 {
					delete(h.rooms, client.room)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribers reports how many clients are in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastMessage marshals the message and queues it for every client in
// room. Slow clients whose buffers are full are dropped.
func (h *Hub) BroadcastMessage(room string, messageType string, data interface{}) {
	messageBytes, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	// Run closes send channels under the write lock, so holding the read
	// lock for the whole loop keeps every send on an open channel.
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[room]
	if len(clients) == 0 {
		return
	}

	for client := range clients {
		select {
		case client.send <- messageBytes:
		default:
			log.Printf("Send channel full for client %p; unregistering client", client)
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
	log.Printf("Broadcast %s to %d clients in room %s", messageType, len(clients), room)
}

// HandleWebSocket upgrades the connection and subscribes it to room.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		room: room,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump only services control frames; the feed is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Error writing message to client %p: %v", c, err)
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
