package commands

import (
	"strings"

	"poll-service/internal/domain/poll"
	poll_errors "poll-service/pkg/errors"
)

const (
	TypeCreatePoll = "poll.create"
	TypeCastVote   = "poll.vote"
	TypeDeletePoll = "poll.delete"
)

type CreatePollCommand struct {
	Name    string
	Minutes int
	Options []string
}

func (CreatePollCommand) CommandType() string {
	return TypeCreatePoll
}

func (c CreatePollCommand) Validate() error {
	return poll.ValidateNew(c.Name, c.Minutes, c.Options)
}

type CastVoteCommand struct {
	Name   string
	Voter  string
	Option string
}

func (CastVoteCommand) CommandType() string {
	return TypeCastVote
}

func (c CastVoteCommand) Validate() error {
	if strings.TrimSpace(c.Voter) == "" {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "missing or invalid 'voter' parameter")
	}
	if c.Name == "" {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "missing or invalid 'name' parameter")
	}
	if c.Option == "" {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "missing or invalid 'option' parameter")
	}
	return nil
}

type DeletePollCommand struct {
	Name string
}

func (DeletePollCommand) CommandType() string {
	return TypeDeletePoll
}

func (c DeletePollCommand) Validate() error {
	if c.Name == "" {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "missing or invalid 'name' parameter")
	}
	return nil
}
