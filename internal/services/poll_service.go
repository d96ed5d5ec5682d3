package services

import (
	"context"

	"poll-service/internal/commands"
	"poll-service/internal/domain/poll"
	"poll-service/internal/events"
	"poll-service/internal/repository"
	poll_errors "poll-service/pkg/errors"
	"poll-service/pkg/logger"

	"go.uber.org/zap"
)

// Archiver keeps a copy of a poll after it is deleted.
type Archiver interface {
	Archive(ctx context.Context, p *poll.Poll, nowMs int64) error
}

type PollService struct {
	repo      repository.PollRepository
	bus       *commands.Bus
	publisher events.Publisher
	archiver  Archiver
	logger    *logger.Logger
}

// NewPollService wires the store to the command bus. publisher and archiver
// may be nil.
func NewPollService(repo repository.PollRepository, bus *commands.Bus, publisher events.Publisher, archiver Archiver, l *logger.Logger) *PollService {
	if bus == nil {
		bus = commands.NewBus()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if l == nil {
		l = logger.NewNop()
	}
	svc := &PollService{
		repo:      repo,
		bus:       bus,
		publisher: publisher,
		archiver:  archiver,
		logger:    l,
	}
	svc.RegisterHandlers()
	return svc
}

func (s *PollService) RegisterHandlers() {
	s.bus.Register(commands.TypeCreatePoll, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.CreatePollCommand)
		if !ok {
			return commands.Result{}, poll_errors.ErrInvalidInput
		}
		p, err := s.repo.Create(c.Name, c.Minutes, c.Options)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{AggregateID: p.Name, Payload: p}, nil
	}))
	s.bus.Register(commands.TypeCastVote, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.CastVoteCommand)
		if !ok {
			return commands.Result{}, poll_errors.ErrInvalidInput
		}
		p, err := s.repo.Vote(c.Name, c.Voter, c.Option)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{AggregateID: p.Name, Payload: p}, nil
	}))
	s.bus.Register(commands.TypeDeletePoll, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.DeletePollCommand)
		if !ok {
			return commands.Result{}, poll_errors.ErrInvalidInput
		}
		p, err := s.repo.Delete(c.Name)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{AggregateID: p.Name, Payload: p}, nil
	}))
}

func (s *PollService) Bus() *commands.Bus {
	return s.bus
}

func (s *PollService) Create(ctx context.Context, cmd commands.CreatePollCommand) (*poll.Poll, error) {
	p, err := s.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventPollCreated, p)
	s.logger.WithContext(ctx).Info("poll created",
		zap.String("poll", p.Name),
		zap.Int("minutes", p.Minutes),
		zap.Int("options", len(p.Options)),
	)
	return p, nil
}

func (s *PollService) Vote(ctx context.Context, cmd commands.CastVoteCommand) (*poll.Poll, error) {
	p, err := s.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventPollVoted, p)
	return p, nil
}

// Delete removes the poll and archives its final state when an archiver is
// configured. Archive failures do not fail the delete.
func (s *PollService) Delete(ctx context.Context, cmd commands.DeletePollCommand) (*poll.Poll, error) {
	p, err := s.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, p, s.repo.Now()); err != nil {
			s.logger.WithContext(ctx).Error("failed to archive poll", zap.String("poll", p.Name), zap.Error(err))
		}
	}
	s.publish(ctx, events.EventPollDeleted, p)
	s.logger.WithContext(ctx).Info("poll deleted", zap.String("poll", p.Name))
	return p, nil
}

func (s *PollService) Get(ctx context.Context, name string) (*poll.Poll, error) {
	if name == "" {
		return nil, poll_errors.Newf(poll_errors.ErrInvalidInput, "missing or invalid 'name' parameter")
	}
	return s.repo.Get(name)
}

func (s *PollService) List(ctx context.Context) []*poll.Poll {
	return s.repo.List()
}

func (s *PollService) Now() int64 {
	return s.repo.Now()
}

// Reset clears the store and reports how many polls were dropped.
func (s *PollService) Reset(ctx context.Context) int {
	n := s.repo.Len()
	s.repo.Reset()
	s.logger.WithContext(ctx).Warn("store reset", zap.Int("cleared", n))
	return n
}

// AdvanceTime pretends ms milliseconds have passed for every stored poll.
func (s *PollService) AdvanceTime(ctx context.Context, ms int64) error {
	if ms < 0 {
		return poll_errors.Newf(poll_errors.ErrInvalidInput, "'ms' is not a non-negative integer: %d", ms)
	}
	s.repo.AdvanceTime(ms)
	s.logger.WithContext(ctx).Warn("time advanced", zap.Int64("ms", ms))
	return nil
}

func (s *PollService) execute(ctx context.Context, cmd commands.Command) (*poll.Poll, error) {
	res, err := s.bus.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	p, ok := res.Payload.(*poll.Poll)
	if !ok {
		return nil, poll_errors.ErrInvalidInput
	}
	return p, nil
}

// publish runs after the store has changed, so a failed delivery is only
// logged.
func (s *PollService) publish(ctx context.Context, eventType events.EventType, p *poll.Poll) {
	event := events.NewPollEvent(eventType, p, s.repo.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("event_type", string(eventType)),
			zap.String("poll", p.Name),
			zap.Error(err),
		)
	}
}
