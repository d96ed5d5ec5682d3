package events

// Event types follow the format domain.action
type EventType string

const (
	EventPollCreated EventType = "poll.created"
	EventPollVoted   EventType = "poll.voted"
	EventPollClosed  EventType = "poll.closed"
	EventPollDeleted EventType = "poll.deleted"

	// sent once to a websocket client right after it subscribes
	EventPollSnapshot EventType = "poll.snapshot"
)

const AggregateTypePoll = "poll"
