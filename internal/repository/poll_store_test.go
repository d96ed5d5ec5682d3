package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"poll-service/internal/domain/poll"
	poll_errors "poll-service/pkg/errors"
)

const minute = int64(60 * 1000)

// fixedClock returns a clock frozen at a known instant.
func fixedClock() (func() time.Time, time.Time) {
	now := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return now }, now
}

func newTestStore(t *testing.T) *PollStore {
	t.Helper()
	clock, _ := fixedClock()
	return NewPollStoreWithClock(clock)
}

func mustCreate(t *testing.T, s *PollStore, name string, minutes int, options ...string) *poll.Poll {
	t.Helper()
	p, err := s.Create(name, minutes, options)
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", name, err)
	}
	return p
}

func TestCreate(t *testing.T) {
	clock, now := fixedClock()
	s := NewPollStoreWithClock(clock)

	p := mustCreate(t, s, "couch", 4, "eric1", "eric2")
	if p.Name != "couch" || p.Minutes != 4 {
		t.Errorf("unexpected poll: %+v", p)
	}
	if p.EndTime != now.UnixMilli()+4*minute {
		t.Errorf("EndTime = %d, want %d", p.EndTime, now.UnixMilli()+4*minute)
	}
	if p.Results["eric1"] != 0 || p.Results["eric2"] != 0 || len(p.Results) != 2 {
		t.Errorf("unexpected results: %v", p.Results)
	}

	_, err := s.Create("couch", 3, []string{"a", "b"})
	if !errors.Is(err, poll_errors.ErrAlreadyExists) {
		t.Errorf("duplicate create: expected ErrAlreadyExists, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		options []string
	}{
		{"zero duration", 0, []string{"a", "b"}},
		{"one option", 3, []string{"a"}},
		{"duplicate options", 3, []string{"a", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.Create("couch", tt.minutes, tt.options)
			if !errors.Is(err, poll_errors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if s.Len() != 0 {
				t.Error("invalid create must not insert a poll")
			}
		})
	}
}

func TestGet(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 5, "eric1", "eric2", "eric3")

	p, err := s.Get("couch")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Minutes != 5 || len(p.Options) != 3 {
		t.Errorf("unexpected poll: %+v", p)
	}

	_, err = s.Get("fridge")
	if !errors.Is(err, poll_errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err.Error() != "no poll with name 'fridge'" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 5, "x", "y")

	p, _ := s.Get("couch")
	p.Results["x"] = 99
	p.Votes["mallory"] = "x"

	again, _ := s.Get("couch")
	if again.Results["x"] != 0 || len(again.Votes) != 0 {
		t.Error("mutating a returned poll changed the store")
	}
}

func TestVoteScenario(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 4, "x", "y")

	steps := []struct {
		voter, option string
		want          map[string]int
	}{
		{"Ann", "x", map[string]int{"x": 1, "y": 0}},
		{"Ann", "y", map[string]int{"x": 0, "y": 1}},
		{"Bob", "y", map[string]int{"x": 0, "y": 2}},
		{"Bob", "y", map[string]int{"x": 0, "y": 2}},
	}

	for _, step := range steps {
		p, err := s.Vote("couch", step.voter, step.option)
		if err != nil {
			t.Fatalf("Vote(%s, %s) failed: %v", step.voter, step.option, err)
		}
		for opt, n := range step.want {
			if p.Results[opt] != n {
				t.Errorf("after %s->%s: Results[%s] = %d, want %d", step.voter, step.option, opt, p.Results[opt], n)
			}
		}
		if p.Votes[step.voter] != step.option {
			t.Errorf("Votes[%s] = %q, want %q", step.voter, p.Votes[step.voter], step.option)
		}
		assertInvariant(t, p)
	}

	if _, err := s.Delete("couch"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("couch"); !errors.Is(err, poll_errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestVoteErrors(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 5, "eric1", "eric2", "eric3")

	tests := []struct {
		name     string
		poll     string
		voter    string
		option   string
		wantKind error
		wantMsg  string
	}{
		{"missing voter", "couch", "", "eric1", poll_errors.ErrInvalidInput, "missing or invalid 'voter' parameter"},
		{"unknown poll", "chair", "Barney", "eric1", poll_errors.ErrNotFound, "no poll with name 'chair'"},
		{"missing option", "couch", "Barney", "", poll_errors.ErrInvalidOption, "'' is not an option in poll 'couch'"},
		{"unknown option", "couch", "Barney", "eric4", poll_errors.ErrInvalidOption, "'eric4' is not an option in poll 'couch'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Vote(tt.poll, tt.voter, tt.option)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %v, got %v", tt.wantKind, err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}

	p, _ := s.Get("couch")
	if len(p.Votes) != 0 {
		t.Errorf("failed votes must not be recorded, got %v", p.Votes)
	}
}

func TestVoteClosed(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 5, "eric1", "eric2")

	if _, err := s.Vote("couch", "Barney", "eric1"); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}

	s.AdvanceTime(5*minute + 50)

	_, err := s.Vote("couch", "Barney", "eric2")
	if !errors.Is(err, poll_errors.ErrPollClosed) {
		t.Fatalf("expected ErrPollClosed, got %v", err)
	}
	if err.Error() != `poll for "couch" has already ended` {
		t.Errorf("error = %q", err.Error())
	}

	p, _ := s.Get("couch")
	if p.Votes["Barney"] != "eric1" || p.Results["eric1"] != 1 || p.Results["eric2"] != 0 {
		t.Errorf("closed poll was modified: votes=%v results=%v", p.Votes, p.Results)
	}
}

func TestVoteAtExactEndTimeIsClosed(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 1, "a", "b")

	s.AdvanceTime(minute)

	if _, err := s.Vote("couch", "Ann", "a"); !errors.Is(err, poll_errors.ErrPollClosed) {
		t.Errorf("expected ErrPollClosed at end time, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	if got := s.List(); len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}

	mustCreate(t, s, "couch", 10, "eric1", "eric2", "eric3")
	mustCreate(t, s, "chair", 5, "eric4", "eric5", "eric6")
	mustCreate(t, s, "stool", 15, "eric7", "eric8", "eric9")

	assertOrder(t, s.List(), "chair", "couch", "stool")

	s.AdvanceTime(5*minute + 50)
	assertOrder(t, s.List(), "couch", "stool", "chair")

	s.AdvanceTime(5 * minute)
	assertOrder(t, s.List(), "stool", "couch", "chair")

	s.AdvanceTime(20 * minute)
	assertOrder(t, s.List(), "stool", "couch", "chair")
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 4, "x", "y")
	if _, err := s.Vote("couch", "Ann", "x"); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}

	final, err := s.Delete("couch")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if final.Results["x"] != 1 {
		t.Errorf("Delete should return the final tally, got %v", final.Results)
	}

	if _, err := s.Delete("couch"); !errors.Is(err, poll_errors.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestClosedBetween(t *testing.T) {
	clock, now := fixedClock()
	s := NewPollStoreWithClock(clock)
	mustCreate(t, s, "short", 1, "a", "b")
	mustCreate(t, s, "long", 10, "a", "b")

	from := now.UnixMilli()
	closed := s.ClosedBetween(from, from+2*minute)
	if len(closed) != 1 || closed[0].Name != "short" {
		t.Fatalf("expected only 'short', got %v", closed)
	}

	if got := s.ClosedBetween(from+2*minute, from+5*minute); len(got) != 0 {
		t.Errorf("expected nothing in window, got %d", len(got))
	}

	// the upper bound is inclusive, the lower bound is not
	end := from + minute
	if got := s.ClosedBetween(end-1, end); len(got) != 1 {
		t.Errorf("expected poll ending at upper bound, got %d", len(got))
	}
	if got := s.ClosedBetween(end, end+1); len(got) != 0 {
		t.Errorf("did not expect poll ending at lower bound, got %d", len(got))
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "couch", 4, "x", "y")
	mustCreate(t, s, "chair", 4, "x", "y")

	s.Reset()

	if s.Len() != 0 {
		t.Errorf("Len() = %d after reset", s.Len())
	}
	mustCreate(t, s, "couch", 4, "x", "y")
}

func TestConcurrentVotes(t *testing.T) {
	s := NewPollStore()
	mustCreate(t, s, "couch", 10, "a", "b", "c")

	options := []string{"a", "b", "c"}
	const voters = 50
	const rounds = 20

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := fmt.Sprintf("voter-%d", i)
			for r := 0; r < rounds; r++ {
				if _, err := s.Vote("couch", voter, options[(i+r)%len(options)]); err != nil {
					t.Errorf("Vote failed: %v", err)
					return
				}
			}
		}(i)
	}

	// readers interleave with writers
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				for _, p := range s.List() {
					assertInvariant(t, p)
				}
			}
		}()
	}

	wg.Wait()

	p, err := s.Get("couch")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(p.Votes) != voters {
		t.Errorf("expected %d voters, got %d", voters, len(p.Votes))
	}
	assertInvariant(t, p)
}

func assertOrder(t *testing.T, polls []*poll.Poll, names ...string) {
	t.Helper()
	if len(polls) != len(names) {
		t.Fatalf("expected %d polls, got %d", len(names), len(polls))
	}
	for i, name := range names {
		if polls[i].Name != name {
			t.Errorf("position %d = %s, want %s", i, polls[i].Name, name)
		}
	}
}

func assertInvariant(t *testing.T, p *poll.Poll) {
	t.Helper()
	if len(p.Results) != len(p.Options) {
		t.Errorf("results has %d entries for %d options", len(p.Results), len(p.Options))
	}
	sum := 0
	for _, n := range p.Results {
		if n < 0 {
			t.Errorf("negative tally in %v", p.Results)
		}
		sum += n
	}
	if sum != len(p.Votes) {
		t.Errorf("results sum %d != %d votes", sum, len(p.Votes))
	}
	counted := make(map[string]int)
	for _, opt := range p.Votes {
		counted[opt]++
	}
	for _, opt := range p.Options {
		if counted[opt] != p.Results[opt] {
			t.Errorf("Results[%s] = %d but %d votes recorded", opt, p.Results[opt], counted[opt])
		}
	}
}
