package websocket

import (
	"context"
	"sync"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opSubscribe
)

// hubOp is a membership change. All changes travel on one queue so they are
// applied in the order callers issued them.
type hubOp struct {
	kind    opKind
	client  *Client
	channel string
	done    chan struct{}
}

// Hub tracks connected viewers and which poll channels each one follows.
// Membership is only changed by Run; Broadcast reads under the lock.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[*Client]struct{}
	ops      chan hubOp
	dropped  int64
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[*Client]struct{}),
		ops:      make(chan hubOp, 1024),
	}
}

// Run applies membership changes until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			h.apply(op)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.ops <- hubOp{kind: opRegister, client: client}
}

// Unregister drops the client from every channel and closes its Send queue.
func (h *Hub) Unregister(client *Client) {
	h.ops <- hubOp{kind: opUnregister, client: client}
}

// Subscribe adds client to channel. The returned channel is closed once the
// subscription is in effect, so anything broadcast after that reaches it.
func (h *Hub) Subscribe(client *Client, channel string) <-chan struct{} {
	done := make(chan struct{})
	h.ops <- hubOp{kind: opSubscribe, client: client, channel: channel, done: done}
	return done
}

// Broadcast queues payload for every viewer of channel. A viewer whose
// queue is full misses the message.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.RLock()
	var missed int64
	for c := range h.channels[channel] {
		if !c.SendMessage(payload) {
			missed++
		}
	}
	h.mu.RUnlock()

	if missed > 0 {
		h.mu.Lock()
		h.dropped += missed
		h.mu.Unlock()
	}
}

// Publish lets the hub act as an in-process event transport.
func (h *Hub) Publish(_ context.Context, channel string, payload []byte) error {
	h.Broadcast(channel, payload)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Viewers is the number of clients following channel.
func (h *Hub) Viewers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// DroppedCount returns how many messages slow viewers missed.
func (h *Hub) DroppedCount() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) apply(op hubOp) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if op.done != nil {
		defer close(op.done)
	}

	c := op.client
	if c.closed {
		return
	}

	switch op.kind {
	case opRegister:
		h.clients[c.ID] = c
	case opSubscribe:
		h.clients[c.ID] = c
		viewers, ok := h.channels[op.channel]
		if !ok {
			viewers = make(map[*Client]struct{})
			h.channels[op.channel] = viewers
		}
		viewers[c] = struct{}{}
		c.Subscribe(op.channel)
	case opUnregister:
		for _, channel := range c.GetChannels() {
			h.leave(c, channel)
		}
		delete(h.clients, c.ID)
		c.closed = true
		close(c.Send)
	}
}

// leave must be called with mu held.
func (h *Hub) leave(c *Client, channel string) {
	if viewers, ok := h.channels[channel]; ok {
		delete(viewers, c)
		if len(viewers) == 0 {
			delete(h.channels, channel)
		}
	}
	c.Unsubscribe(channel)
}
