package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256

	// viewers never send anything but control frames
	maxInboundBytes = 512
)

// Client is one viewer's connection. Send is closed by the hub on
// unregister; closed is guarded by the hub's lock.
type Client struct {
	ID         string
	RemoteAddr string
	Conn       *websocket.Conn
	Send       chan []byte

	mu       sync.RWMutex
	channels map[string]bool
	closed   bool
	writeMu  sync.Mutex
}

func NewClient(conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		Conn:       conn,
		Send:       make(chan []byte, sendBuffer),
		channels:   make(map[string]bool),
	}
}

func (c *Client) Subscribe(channel string) {
	c.mu.Lock()
	c.channels[channel] = true
	c.mu.Unlock()
}

func (c *Client) Unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.channels, channel)
	c.mu.Unlock()
}

// GetChannels returns a copy of the client's channels.
func (c *Client) GetChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	channels := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		channels = append(channels, ch)
	}
	return channels
}

// SendMessage queues msg without blocking. It reports false when the
// queue is full and the message was dropped.
func (c *Client) SendMessage(msg []byte) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// WriteLoop drains Send to the connection and keeps it alive with pings.
// It closes the connection on exit.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadLoop processes pongs and close frames. It returns when the peer
// goes away or stops answering pings.
func (c *Client) ReadLoop() {
	c.Conn.SetReadLimit(maxInboundBytes)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) closeConn() {
	c.writeMu.Lock()
	_ = c.Conn.Close()
	c.writeMu.Unlock()
}
