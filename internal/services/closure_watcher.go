package services

import (
	"context"
	"math"
	"sync"
	"time"

	"poll-service/internal/events"
	"poll-service/internal/repository"
	"poll-service/pkg/logger"

	"go.uber.org/zap"
)

// maxCloseAttempts caps how often a failed poll.closed is retried before
// the watcher gives up on that poll.
const maxCloseAttempts = 10

// ClosureWatcher announces poll.closed once for every poll whose end time
// has passed. Closed stays a derived property; nothing in the store changes.
type ClosureWatcher struct {
	repo      repository.PollRepository
	publisher events.Publisher
	logger    *logger.Logger
	interval  time.Duration
	announced map[string]bool
	attempts  map[string]int
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewClosureWatcher(repo repository.PollRepository, publisher events.Publisher, interval time.Duration, l *logger.Logger) *ClosureWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &ClosureWatcher{
		repo:      repo,
		publisher: publisher,
		logger:    l,
		interval:  interval,
		announced: make(map[string]bool),
		attempts:  make(map[string]int),
		stopChan:  make(chan struct{}),
	}
}

// Start begins the worker loop
func (w *ClosureWatcher) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *ClosureWatcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *ClosureWatcher) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.check(context.Background())
		}
	}
}

// check publishes every newly closed poll. Polls that disappear from the
// closed set (deleted, reset) are forgotten so a new poll with the same
// name is announced again.
func (w *ClosureWatcher) check(ctx context.Context) int {
	now := w.repo.Now()
	closed := w.repo.ClosedBetween(math.MinInt64, now)

	current := make(map[string]bool, len(closed))
	published := 0
	for _, p := range closed {
		current[p.Name] = true
		if w.announced[p.Name] {
			continue
		}
		if err := w.publisher.Publish(ctx, events.NewPollEvent(events.EventPollClosed, p, now)); err != nil {
			w.attempts[p.Name]++
			if w.attempts[p.Name] >= maxCloseAttempts {
				w.logger.Logger.Error("giving up on poll closed", zap.String("poll", p.Name), zap.Error(err))
				w.announced[p.Name] = true
				delete(w.attempts, p.Name)
				continue
			}
			w.logger.Logger.Warn("failed to publish poll closed, will retry",
				zap.String("poll", p.Name),
				zap.Int("attempt", w.attempts[p.Name]),
				zap.Error(err),
			)
			continue
		}
		w.announced[p.Name] = true
		delete(w.attempts, p.Name)
		published++
	}
	for name := range w.announced {
		if !current[name] {
			delete(w.announced, name)
		}
	}
	for name := range w.attempts {
		if !current[name] {
			delete(w.attempts, name)
		}
	}
	return published
}
