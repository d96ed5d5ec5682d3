package websocket

import (
	"context"
	"strings"

	"poll-service/internal/domain/poll"
	"poll-service/internal/events"
	poll_errors "poll-service/pkg/errors"
)

// PollReader is the read side of the poll service the websocket layer needs.
type PollReader interface {
	Get(ctx context.Context, name string) (*poll.Poll, error)
	Now() int64
}

// ChannelAuthorizer decides which channels a client may follow. Voters are
// anonymous, so the only rule is that the channel is ours and its poll exists.
type ChannelAuthorizer struct {
	polls PollReader
}

func NewChannelAuthorizer(polls PollReader) *ChannelAuthorizer {
	return &ChannelAuthorizer{polls: polls}
}

// ChannelFor maps a poll name (possibly empty) to the channel to follow.
func ChannelFor(name string) string {
	if name == "" {
		return events.AllPollsChannel
	}
	return events.PollChannel(name)
}

// CanSubscribe checks a subscription request for channel.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, channel string) error {
	if !events.IsPollChannel(channel) {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "unknown channel '%s'", channel)
	}
	if channel == events.AllPollsChannel {
		return nil
	}
	name := strings.TrimPrefix(channel, "channel:poll:")
	if _, err := a.polls.Get(ctx, name); err != nil {
		return err
	}
	return nil
}
