// Package ws pushes dashboard updates to connected UI clients over
// WebSocket and accepts their control commands (range, filter, refresh).
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// sendBuffer bounds the per-client outbound queue. A full queue drops
	// the frame; bufferFullLimit consecutive drops disconnects the client.
	sendBuffer      = 64
	bufferFullLimit = 10
)

// ErrClientBufferFull is returned when a frame is dropped because the
// client's send queue is full.
var ErrClientBufferFull = errors.New("client buffer is full")

// Client is one connected dashboard session.
//
// The send queue is never closed; done is the only teardown signal, so a
// sender racing Close can at worst queue a frame nobody drains.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	log  zerolog.Logger

	mu            sync.Mutex
	closed        bool
	fullDropCount int

	cleanup func(*Client)
}

// NewClient wraps an upgraded connection. cleanup runs once on close.
func NewClient(id string, conn *websocket.Conn, log zerolog.Logger, cleanup func(*Client)) *Client {
	return &Client{
		ID:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		log:     log.With().Str("client", id).Logger(),
		cleanup: cleanup,
	}
}

// WritePump drains the send queue to the connection and keeps the
// connection alive with periodic pings. Runs until the client closes.
func (c *Client) WritePump() {
	defer c.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ReadPump reads client commands until the connection drops, passing each
// raw message to handler.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer c.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived) {
				c.log.Warn().Err(err).Msg("unexpected close")
			} else {
				c.log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		handler(c, message)
	}
}

// Send marshals and queues a frame without blocking.
func (c *Client) Send(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.SendPreEncoded(data)
}

// SendPreEncoded queues already-encoded JSON, letting broadcasts encode a
// frame once for every client. A full queue drops the frame; a client that
// keeps falling behind is disconnected.
func (c *Client) SendPreEncoded(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("client is closed")
	}
	c.mu.Unlock()

	select {
	case c.send <- data:
		c.mu.Lock()
		c.fullDropCount = 0
		c.mu.Unlock()
		return nil
	default:
		c.mu.Lock()
		c.fullDropCount++
		drops := c.fullDropCount
		c.mu.Unlock()

		c.log.Warn().Int("drops", drops).Msg("send queue full, dropping frame")
		if drops >= bufferFullLimit {
			c.log.Warn().Msg("disconnecting slow client")
			go c.Close()
		}
		return ErrClientBufferFull
	}
}

// Close tears the connection down exactly once. The send queue stays open so
// a sender that raced past the closed check cannot panic; its frame is simply
// never drained.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.conn.Close()
	if c.cleanup != nil {
		c.cleanup(c)
	}
}

// IsClosed reports whether Close has run.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
