package repository

import (
	"strings"
	"sync"
	"time"

	"poll-service/internal/domain/poll"
	poll_errors "poll-service/pkg/errors"
)

// PollStore keeps every poll in memory behind a single mutex. The lock
// covers both the map and each poll's votes and results.
type PollStore struct {
	mu    sync.Mutex
	polls map[string]*poll.Poll
	clock func() time.Time
}

func NewPollStore() *PollStore {
	return NewPollStoreWithClock(time.Now)
}

func NewPollStoreWithClock(clock func() time.Time) *PollStore {
	if clock == nil {
		clock = time.Now
	}
	return &PollStore{
		polls: make(map[string]*poll.Poll),
		clock: clock,
	}
}

var _ PollRepository = (*PollStore)(nil)

func (s *PollStore) Now() int64 {
	return s.clock().UnixMilli()
}

func (s *PollStore) Create(name string, minutes int, options []string) (*poll.Poll, error) {
	if err := poll.ValidateNew(name, minutes, options); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.polls[name]; exists {
		return nil, poll_errors.Newf(poll_errors.ErrAlreadyExists, "poll with name '%s' already exists", name)
	}

	p := poll.New(name, minutes, options, s.clock())
	s.polls[name] = p
	return p.Clone(), nil
}

func (s *PollStore) Get(name string) (*poll.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[name]
	if !ok {
		return nil, notFound(name)
	}
	return p.Clone(), nil
}

// List returns every poll, soonest-closing open polls first and then
// closed polls, most recently closed first.
func (s *PollStore) List() []*poll.Poll {
	s.mu.Lock()
	list := make([]*poll.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		list = append(list, p.Clone())
	}
	s.mu.Unlock()

	poll.SortByRank(list, s.Now())
	return list
}

// Vote records voter's choice on an open poll. Nothing changes unless every
// check passes.
func (s *PollStore) Vote(name, voter, option string) (*poll.Poll, error) {
	if strings.TrimSpace(voter) == "" {
		return nil, poll_errors.Newf(poll_errors.ErrInvalidInput, "missing or invalid 'voter' parameter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[name]
	if !ok {
		return nil, notFound(name)
	}
	if !p.IsOpen(s.Now()) {
		return nil, poll_errors.Newf(poll_errors.ErrPollClosed, `poll for "%s" has already ended`, name)
	}
	if !p.HasOption(option) {
		return nil, poll_errors.Newf(poll_errors.ErrInvalidOption, "'%s' is not an option in poll '%s'", option, name)
	}

	p.Cast(voter, option)
	return p.Clone(), nil
}

// Delete removes the poll and returns its final state.
func (s *PollStore) Delete(name string) (*poll.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[name]
	if !ok {
		return nil, notFound(name)
	}
	delete(s.polls, name)
	return p, nil
}

// ClosedBetween returns polls whose end time lies in (fromMs, toMs].
func (s *PollStore) ClosedBetween(fromMs, toMs int64) []*poll.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed []*poll.Poll
	for _, p := range s.polls {
		if p.EndTime > fromMs && p.EndTime <= toMs {
			closed = append(closed, p.Clone())
		}
	}
	return closed
}

func (s *PollStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polls)
}

// Reset drops every poll. Test hook.
func (s *PollStore) Reset() {
	s.mu.Lock()
	s.polls = make(map[string]*poll.Poll)
	s.mu.Unlock()
}

// AdvanceTime moves every poll's end time ms into the past. Test hook.
func (s *PollStore) AdvanceTime(ms int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.polls {
		p.EndTime -= ms
	}
}

func notFound(name string) error {
	return poll_errors.Newf(poll_errors.ErrNotFound, "no poll with name '%s'", name)
}
