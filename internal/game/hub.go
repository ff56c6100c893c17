package game

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const clientQueueSize = 64

// Client is one websocket connection. Writes go through a queue drained
// by a single writer so the player sees messages in order.
type Client struct {
	conn     Conn
	playerID string
	outbox   chan []byte
	done     chan struct{}
	mu       sync.Mutex
	closed   bool
}

type envelope struct {
	playerID string
	message  interface{}
}

// Hub fans display updates out to the websocket clients of each player.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan interface{}
	direct     chan envelope
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan interface{}, 100),
		direct:     make(chan envelope, 1000),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.closeAll()
			log.Println("[WS] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.playerID] == nil {
				h.clients[client.playerID] = make(map[*Client]bool)
			}
			h.clients[client.playerID][client] = true
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (Total: %d)", client.playerID, h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.playerID]; ok && set[client] {
				delete(set, client)
				if len(set) == 0 {
					delete(h.clients, client.playerID)
				}
			}
			h.mu.Unlock()
			client.close()
			log.Printf("[WS] Client disconnected: %s (Total: %d)", client.playerID, h.GetClientCount())

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for _, set := range h.clients {
				for client := range set {
					client.enqueue(data)
				}
			}
			h.mu.RUnlock()

		case env := <-h.direct:
			data, err := json.Marshal(env.message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients[env.playerID] {
				client.enqueue(data)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for client := range set {
			client.close()
			client.conn.Close()
		}
		delete(h.clients, id)
	}
}

func (h *Hub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
	}
}

// SendTo queues a message for every connection of one player.
func (h *Hub) SendTo(playerID string, message interface{}) {
	select {
	case h.direct <- envelope{playerID: playerID, message: message}:
	default:
		log.Printf("[WS] Direct channel full, dropping message for %s", playerID)
	}
}

// SessionChanged pushes the latest snapshot to the player.
func (h *Hub) SessionChanged(snap wager.Snapshot) {
	h.SendTo(snap.PlayerID, WSMessage{Type: MessageSession, Data: snap})
}

// Deliver forwards a feedback cue to the player.
func (h *Hub) Deliver(ev feedback.Event) error {
	h.SendTo(ev.PlayerID, WSMessage{Type: MessageFeedback, Data: FeedbackMessage{
		Signal: string(ev.Signal),
		Flavor: string(ev.Flavor),
		Cue:    string(ev.Cue),
		At:     ev.At,
	}})
	return nil
}

// SendFrame forwards a decorative frame to the player.
func (h *Hub) SendFrame(playerID string, frame FrameMessage) {
	h.SendTo(playerID, WSMessage{Type: MessageFrame, Data: frame})
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outbox <- data:
	default:
		log.Printf("[WS] Queue full for player %s, dropping message", c.playerID)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.outbox)
}

func (c *Client) writePump() {
	defer close(c.done)
	for data := range c.outbox {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WS] Write error for player %s: %v", c.playerID, err)
		}
	}
}

// Send queues a message for this connection only.
func (c *Client) Send(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Marshal error: %v", err)
		return
	}
	c.enqueue(data)
}

// SendInitialState greets a new connection with the current snapshot.
func (c *Client) SendInitialState(snap wager.Snapshot) {
	c.Send(WSMessage{Type: MessageWelcome, Data: snap})
}

func (h *Hub) RegisterClient(conn Conn, playerID string) *Client {
	client := &Client{
		conn:     conn,
		playerID: playerID,
		outbox:   make(chan []byte, clientQueueSize),
		done:     make(chan struct{}),
	}
	go client.writePump()
	select {
	case h.register <- client:
	case <-h.stopped:
		client.close()
	}
	return client
}

// UnregisterClient removes the client and waits for its writer to drain,
// so the connection is idle when the caller returns.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
		client.close()
	}
	<-client.done
}
