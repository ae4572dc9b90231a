package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
)

type Hub struct {
	clients    map[string]*Client
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	logger     logger.Logger
	mu         sync.RWMutex
	ctx        context.Context
}

func NewHub(ctx context.Context, log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
		ctx:        ctx,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	h.logger.Debug("Map view connected", "client_id", client.id, "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		close(client.send)
		h.logger.Debug("Map view disconnected", "client_id", client.id, "clients", len(h.clients))
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client's send channel is full, close it
			close(client.send)
			delete(h.clients, id)
		}
	}
}

// Publish queues message for every connected view. It never blocks; when
// the queue is full the message is dropped since views redraw on the next
// event anyway.
func (h *Hub) Publish(message *Message) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().Unix()
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Dropping map event, broadcast queue full", "type", message.Type)
	}
}

func (h *Hub) PointRevealed(p location.GeoPoint, primaryCount int) {
	h.Publish(&Message{Type: MessageTypePointRevealed, Point: &p, PrimaryCount: primaryCount})
}

func (h *Hub) SharedImported(sharedCount int) {
	h.Publish(&Message{Type: MessageTypeSharedImported, SharedCount: sharedCount})
}

func (h *Hub) TransferProgress(transferID string, have, total int) {
	h.Publish(&Message{Type: MessageTypeTransferProgress, TransferID: transferID, Have: have, Total: total})
}

func (h *Hub) FogReset() {
	h.Publish(&Message{Type: MessageTypeFogReset})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
}
