package events

import (
	"time"

	"poll-service/internal/domain/poll"
	"poll-service/internal/transport/httpdto"

	"github.com/google/uuid"
)

// Event is what subscribers receive on every channel the resolver picks.
type Event struct {
	ID            string           `json:"id"`
	EventType     EventType        `json:"event_type"`
	AggregateType string           `json:"aggregate_type"`
	AggregateID   string           `json:"aggregate_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Poll          *httpdto.PollDTO `json:"poll,omitempty"`
	Viewers       int              `json:"viewers,omitempty"` // set on poll.snapshot
}

// NewPollEvent snapshots p as seen at nowMs.
func NewPollEvent(eventType EventType, p *poll.Poll, nowMs int64) Event {
	dto := httpdto.FromPoll(p, nowMs)
	return Event{
		ID:            uuid.New().String(),
		EventType:     eventType,
		AggregateType: AggregateTypePoll,
		AggregateID:   p.Name,
		OccurredAt:    time.UnixMilli(nowMs).UTC(),
		Poll:          &dto,
	}
}
