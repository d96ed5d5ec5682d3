package poll

import (
	"strings"
	"time"

	poll_errors "poll-service/pkg/errors"
)

const MinOptions = 2

// Poll is a named, time-bounded multiple-choice vote.
// RI: len(Options) >= 2, Results has one key per option and its values sum
// to len(Votes).
type Poll struct {
	Name    string
	Minutes int
	EndTime int64 // epoch milliseconds
	Options []string
	Votes   map[string]string // voter -> option
	Results map[string]int    // option -> count
}

// ValidateNew checks the arguments of a poll that is about to be created.
func ValidateNew(name string, minutes int, options []string) error {
	if strings.TrimSpace(name) == "" {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, `required argument "name" was missing`)
	}
	if minutes < 1 {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "'minutes' is not a positive integer: %d", minutes)
	}
	if len(options) < MinOptions {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "the number of options is less than %d: %d", MinOptions, len(options))
	}
	seen := make(map[string]struct{}, len(options))
	for i, opt := range options {
		if opt == "" {
			return poll_errors.Newf(poll_errors.ErrInvalidInput, "option %d is empty", i)
		}
		if _, dup := seen[opt]; dup {
			return poll_errors.Newf(poll_errors.ErrInvalidInput, "duplicate option '%s'", opt)
		}
		seen[opt] = struct{}{}
	}
	return nil
}

// New builds a poll that closes minutes after now. Arguments must already
// have passed ValidateNew.
func New(name string, minutes int, options []string, now time.Time) *Poll {
	opts := make([]string, len(options))
	copy(opts, options)

	results := make(map[string]int, len(opts))
	for _, opt := range opts {
		results[opt] = 0
	}

	return &Poll{
		Name:    name,
		Minutes: minutes,
		EndTime: now.UnixMilli() + int64(minutes)*time.Minute.Milliseconds(),
		Options: opts,
		Votes:   make(map[string]string),
		Results: results,
	}
}

// IsOpen reports whether votes are still accepted at nowMs.
func (p *Poll) IsOpen(nowMs int64) bool {
	return nowMs < p.EndTime
}

func (p *Poll) HasOption(option string) bool {
	_, ok := p.Results[option]
	return ok
}

// Cast records voter's choice, replacing any earlier one. It returns the
// voter's previous option and whether there was one.
func (p *Poll) Cast(voter, option string) (string, bool) {
	previous, had := p.Votes[voter]
	if had {
		p.Results[previous]--
	}
	p.Votes[voter] = option
	p.Results[option]++
	return previous, had
}

func (p *Poll) TotalVotes() int {
	return len(p.Votes)
}

// Clone returns a deep copy that shares nothing with p.
func (p *Poll) Clone() *Poll {
	opts := make([]string, len(p.Options))
	copy(opts, p.Options)

	votes := make(map[string]string, len(p.Votes))
	for voter, opt := range p.Votes {
		votes[voter] = opt
	}

	results := make(map[string]int, len(p.Results))
	for opt, n := range p.Results {
		results[opt] = n
	}

	return &Poll{
		Name:    p.Name,
		Minutes: p.Minutes,
		EndTime: p.EndTime,
		Options: opts,
		Votes:   votes,
		Results: results,
	}
}
