package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/threesixtyfive/server/internal/observability"
)

// EventMessage is one event pushed to gallery viewers
type EventMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sentAt"`
}

// EventClient represents a connected WebSocket viewer
type EventClient struct {
	ID         string
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *EventHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// EventHub fans reconcile events out to every connected viewer
type EventHub struct {
	clients    map[*EventClient]bool
	register   chan *EventClient
	unregister chan *EventClient
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
}

// NewEventHub creates a new EventHub
func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*EventClient]bool),
		register:   make(chan *EventClient),
		unregister: make(chan *EventClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *EventHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.Debugf("Event client connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			observability.Debugf("Event client disconnected: %s", client.ID)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client buffer full, close connection
					go h.Unregister(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish implements EventPublisher. It never blocks the reconcile run:
// when the broadcast buffer is full the event is dropped.
func (h *EventHub) Publish(eventType string, payload interface{}) {
	if h == nil {
		return
	}

	data, err := json.Marshal(EventMessage{
		Type:    eventType,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		observability.Errorf("Error marshaling event %s: %v", eventType, err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		observability.Warnf("Event buffer full, dropping %s", eventType)
	}
}

// Register adds a client to the hub
func (h *EventHub) Register(client *EventClient) {
	select {
	case h.register <- client:
	case <-h.done:
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}

// Unregister removes a client from the hub
func (h *EventHub) Unregister(client *EventClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a new client connected to this hub
func (h *EventHub) NewClient(id string, conn *websocket.Conn) *EventClient {
	return &EventClient{
		ID:   id,
		Conn: conn,
		Send: make(chan []byte, 64),
		hub:  h,
	}
}

// Close closes the client connection
func (c *EventClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// WritePump pumps messages from the hub to the websocket connection
func (c *EventClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()

			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains control frames until the viewer goes away. Viewers never
// send application messages.
func (c *EventClient) ReadPump() {
	defer c.Close()

	c.Conn.SetReadLimit(4 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				observability.Warnf("WebSocket error: %v", err)
			}
			return
		}
	}
}
