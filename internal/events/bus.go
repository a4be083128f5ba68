package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block; anything slow should hand off
// to its own worker.
type Handler func(ctx context.Context, event *Event)

// Bus is an in-process publish/subscribe fan-out. Subscriptions are set up
// at wiring time and never removed, so publishing takes only a read lock.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]Handler)}
}

// Subscribe registers a handler for one topic. TopicAll matches every
// event.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], handler)
}

// Publish encodes the payload and delivers the event to the topic's
// handlers and to TopicAll subscribers.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", string(topic)).Msg("Dropping unencodable event")
		return
	}

	event := &Event{
		ID:      uuid.NewString(),
		Topic:   topic,
		At:      time.Now().UTC(),
		Payload: body,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic])+len(b.subs[TopicAll]))
	handlers = append(handlers, b.subs[topic]...)
	handlers = append(handlers, b.subs[TopicAll]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}

	log.Debug().
		Str("event_id", event.ID).
		Str("topic", string(topic)).
		Int("handlers", len(handlers)).
		Msg("Event published")
}
