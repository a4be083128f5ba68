package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/metrics"
)

// Hub fans bus events out to every connected WebSocket client. There is no
// per-client filtering: the scheduling feed is small enough that clients
// pick locally.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

// NewHub builds a hub and wires it to the bus.
func NewHub(bus *Bus) *Hub {
	h := &Hub{clients: make(map[string]*Client)}
	bus.Subscribe(TopicAll, h.broadcast)
	return h
}

// Register adds a freshly accepted client and greets it.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.closeForShutdown()
		return
	}
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	metrics.UpdateEventClients(total)
	log.Debug().Str("client_id", client.ID).Int("total_clients", total).Msg("Feed client connected")

	payload, _ := json.Marshal(&ConnectedPayload{ClientID: client.ID})
	_ = client.Send(&Message{Type: MessageTypeConnected, Payload: payload})
}

func (h *Hub) unregister(clientID string) {
	h.mu.Lock()
	if _, ok := h.clients[clientID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, clientID)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.UpdateEventClients(total)
	log.Debug().Str("client_id", clientID).Int("total_clients", total).Msg("Feed client disconnected")
}

// Stop disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeForShutdown()
	}
	metrics.UpdateEventClients(0)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(_ context.Context, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		_ = c.Send(&Message{Type: MessageTypeEvent, Payload: data})
	}
}
