package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongTimeout    = 60 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Client is one connected WebSocket feed consumer. The feed is one-way:
// the server pushes events, the client may only ping.
type Client struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub

	mu     sync.Mutex
	sendCh chan []byte
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient wraps an accepted WebSocket connection.
func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:     uuid.NewString(),
		conn:   conn,
		hub:    hub,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the client's pumps and blocks until the connection closes.
func (c *Client) Run() {
	go c.writePump()
	go c.pingPump()
	c.readPump()
}

// Close terminates the connection and removes the client from the hub.
func (c *Client) Close() {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
		close(c.done)
	}
	c.mu.Unlock()

	c.cancel()
	c.hub.unregister(c.ID)
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// closeForShutdown terminates the connection without hub cleanup; the hub
// is tearing itself down and already holds its lock.
func (c *Client) closeForShutdown() {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
		close(c.done)
	}
	c.mu.Unlock()

	c.cancel()
	c.conn.Close(websocket.StatusGoingAway, "server shutting down")
}

// Send queues a message for the client. A full buffer drops the message
// rather than stalling the publisher.
func (c *Client) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return context.Canceled
	default:
		log.Warn().Str("client_id", c.ID).Msg("Client send buffer full, dropping message")
		return nil
	}
}

func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Debug().Err(err).Str("client_id", c.ID).Msg("WebSocket read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(msg.ID, "INVALID_MESSAGE", "Invalid JSON message")
			continue
		}

		switch msg.Type {
		case MessageTypePing:
			_ = c.Send(&Message{ID: msg.ID, Type: MessageTypePong})
		default:
			c.sendError(msg.ID, "INVALID_MESSAGE", "Unknown message type")
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case data := <-c.sendCh:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("client_id", c.ID).Msg("WebSocket write error")
				return
			}
		case <-c.done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) pingPump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, pongTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("client_id", c.ID).Msg("Ping failed")
				c.Close()
				return
			}
		case <-c.done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) sendError(msgID, code, message string) {
	payload, _ := json.Marshal(&ErrorPayload{Code: code, Message: message})
	_ = c.Send(&Message{ID: msgID, Type: MessageTypeError, Payload: payload})
}
