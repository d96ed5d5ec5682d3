package events

import "context"

type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error
}

// ChannelPublisher delivers a raw payload to a named channel. Redis, AMQP
// and the in-process websocket hub all implement it.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
