package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the stream only carries public gallery data
		return true
	},
}

// EventsHandler streams reconcile events to gallery viewers
type EventsHandler struct {
	hub *services.EventHub
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(hub *services.EventHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// HandleConnection upgrades HTTP to WebSocket and manages the connection
func (h *EventsHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)
	h.hub.Register(client)

	// Start the write pump in a goroutine
	go client.WritePump()

	// Run the read pump (blocks until connection closes)
	client.ReadPump()
}
