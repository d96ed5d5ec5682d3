package httpdto

import (
	"sort"

	"poll-service/internal/domain/poll"
)

// CreatePollRequest is used for POST /api/add. Fields are pointers so a
// missing field can be told apart from a zero value.
type CreatePollRequest struct {
	Name    *string  `json:"name"`
	Minutes *float64 `json:"minutes"`
	Options []string `json:"options"`
}

// GetPollRequest holds query parameters for GET /api/get
type GetPollRequest struct {
	Name string `form:"name"`
}

// VoteRequest is used for POST /api/vote
type VoteRequest struct {
	Name   string `json:"name"`
	Voter  string `json:"voter"`
	Option string `json:"option"`
}

// DeletePollRequest is used for POST /api/delete
type DeletePollRequest struct {
	Name string `json:"name"`
}

// AdvanceTimeRequest is used for POST /api/test/advance
type AdvanceTimeRequest struct {
	Ms int64 `json:"ms"`
}

// VoteDTO is a single voter's current choice
type VoteDTO struct {
	Voter  string `json:"voter"`
	Option string `json:"option"`
}

// ResultDTO is the tally for one option
type ResultDTO struct {
	Option  string `json:"option"`
	VoteNum int    `json:"voteNum"`
}

// PollDTO represents a poll in API responses and live events
type PollDTO struct {
	Name       string      `json:"name"`
	Minutes    int         `json:"minutes"`
	EndTime    int64       `json:"endTime"`
	Options    []string    `json:"options"`
	Votes      []VoteDTO   `json:"votes"`
	Results    []ResultDTO `json:"results"`
	TotalVotes int         `json:"totalVotes"`
	Open       bool        `json:"open"`
}

// PollResponse wraps a single poll
type PollResponse struct {
	Poll PollDTO `json:"poll"`
}

// ListPollsResponse is returned by GET /api/list
type ListPollsResponse struct {
	Polls []PollDTO `json:"polls"`
}

// DeletePollResponse is returned after a poll is removed
type DeletePollResponse struct {
	Name string `json:"name"`
}

// ResetResponse is returned by POST /api/test/reset
type ResetResponse struct {
	Cleared           int `json:"cleared"`
	RateLimitsCleared int `json:"rateLimitsCleared"`
}

// FromPoll converts a poll to its wire form. Votes are sorted by voter and
// results follow the poll's option order.
func FromPoll(p *poll.Poll, nowMs int64) PollDTO {
	votes := make([]VoteDTO, 0, len(p.Votes))
	for voter, option := range p.Votes {
		votes = append(votes, VoteDTO{Voter: voter, Option: option})
	}
	sort.Slice(votes, func(i, j int) bool {
		return votes[i].Voter < votes[j].Voter
	})

	results := make([]ResultDTO, 0, len(p.Options))
	for _, option := range p.Options {
		results = append(results, ResultDTO{Option: option, VoteNum: p.Results[option]})
	}

	options := make([]string, len(p.Options))
	copy(options, p.Options)

	return PollDTO{
		Name:       p.Name,
		Minutes:    p.Minutes,
		EndTime:    p.EndTime,
		Options:    options,
		Votes:      votes,
		Results:    results,
		TotalVotes: p.TotalVotes(),
		Open:       p.IsOpen(nowMs),
	}
}

func FromPollSlice(polls []*poll.Poll, nowMs int64) []PollDTO {
	out := make([]PollDTO, 0, len(polls))
	for _, p := range polls {
		out = append(out, FromPoll(p, nowMs))
	}
	return out
}
