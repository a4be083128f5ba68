package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/events"
)

// EventHandlers upgrades clients onto the live event feed.
type EventHandlers struct {
	hub *events.Hub
}

func NewEventHandlers(hub *events.Hub) *EventHandlers {
	return &EventHandlers{hub: hub}
}

// Stream handles GET /api/events. The connection is held open until the
// client disconnects or the server shuts down.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := events.NewClient(conn, h.hub)
	h.hub.Register(client)
	client.Run()
}
