package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus marshals an event once and hands it to every transport for
// every resolved channel.
type EventBus struct {
	mu         sync.RWMutex
	resolver   ChannelResolver
	transports []ChannelPublisher
}

func NewEventBus(resolver ChannelResolver, transports ...ChannelPublisher) *EventBus {
	if resolver == nil {
		resolver = NewPollChannelResolver()
	}
	return &EventBus{resolver: resolver, transports: transports}
}

// AddTransport attaches another delivery path.
func (b *EventBus) AddTransport(t ChannelPublisher) {
	b.mu.Lock()
	b.transports = append(b.transports, t)
	b.mu.Unlock()
}

func (b *EventBus) Publish(ctx context.Context, event Event) error {
	channels := b.resolver.ResolveChannels(event)
	if len(channels) == 0 {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	b.mu.RLock()
	transports := b.transports
	b.mu.RUnlock()

	var errs []error
	for _, t := range transports {
		for _, channel := range channels {
			if err := t.Publish(ctx, channel, data); err != nil {
				errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
			}
		}
	}
	return errors.Join(errs...)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}
