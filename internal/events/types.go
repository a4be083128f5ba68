// Package events provides the in-process event bus and the WebSocket feed
// that streams scheduling activity to connected clients.
package events

import (
	"encoding/json"
	"time"
)

// Topic names one kind of scheduling activity.
type Topic string

const (
	// TopicAll subscribes to every topic.
	TopicAll Topic = "*"

	TopicRunCompleted       Topic = "run.completed"
	TopicCompletionRecorded Topic = "completion.recorded"
	TopicPriorityReloaded   Topic = "priority.reloaded"
)

// Event is one bus message. Payload holds the topic-specific body already
// encoded, so fan-out never re-marshals per subscriber.
type Event struct {
	ID      string          `json:"id"`
	Topic   Topic           `json:"topic"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType represents the type of WebSocket message.
type MessageType string

const (
	MessageTypeConnected MessageType = "connected"
	MessageTypeEvent     MessageType = "event"
	MessageTypePing      MessageType = "ping"
	MessageTypePong      MessageType = "pong"
	MessageTypeError     MessageType = "error"
)

// Message is the base WebSocket message structure.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectedPayload is the payload for connected messages.
type ConnectedPayload struct {
	ClientID string `json:"client_id"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
