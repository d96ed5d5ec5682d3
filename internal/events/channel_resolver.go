package events

import "strings"

const (
	ChannelPrefix   = "channel:"
	AllPollsChannel = "channel:polls"

	pollChannelPrefix = ChannelPrefix + "poll:"
)

// PollChannel is the channel carrying events for a single poll.
func PollChannel(name string) string {
	return pollChannelPrefix + name
}

// IsPollChannel reports whether channel belongs to this service.
func IsPollChannel(channel string) bool {
	return channel == AllPollsChannel || strings.HasPrefix(channel, pollChannelPrefix)
}

// ChannelResolver determines which channels an event is published to
type ChannelResolver interface {
	ResolveChannels(event Event) []string
}

// PollChannelResolver sends every event to the firehose and to the poll's
// own channel.
type PollChannelResolver struct{}

func NewPollChannelResolver() *PollChannelResolver {
	return &PollChannelResolver{}
}

func (r *PollChannelResolver) ResolveChannels(event Event) []string {
	if event.AggregateID == "" {
		return []string{AllPollsChannel}
	}
	return []string{AllPollsChannel, PollChannel(event.AggregateID)}
}
