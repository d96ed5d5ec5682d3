package repository

import (
	"poll-service/internal/domain/poll"
)

// PollRepository is the only gateway through which polls are read or
// mutated. Implementations return copies; callers never share state with
// the repository.
type PollRepository interface {
	Create(name string, minutes int, options []string) (*poll.Poll, error)
	Get(name string) (*poll.Poll, error)
	List() []*poll.Poll
	Vote(name, voter, option string) (*poll.Poll, error)
	Delete(name string) (*poll.Poll, error)

	ClosedBetween(fromMs, toMs int64) []*poll.Poll
	Len() int
	Now() int64

	Reset()
	AdvanceTime(ms int64)
}
