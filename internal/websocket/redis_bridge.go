package websocket

import (
	"context"

	"poll-service/internal/events"
)

// RedisBridge relays Pub/Sub messages from every replica into the local hub.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{events.ChannelPrefix + "poll*"}, func(channel string, payload []byte) {
		if !events.IsPollChannel(channel) {
			return
		}
		b.hub.Broadcast(channel, payload)
	})
}
