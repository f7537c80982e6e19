package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically evicts idle sessions. Conversation state is
// process-lifetime only, so without eviction the store grows without
// bound under sustained traffic.
type Sweeper struct {
	cron    *cron.Cron
	store   *Store
	maxIdle time.Duration
	logger  *slog.Logger
}

// NewSweeper schedules Store.Sweep on the given cron schedule
// (e.g. "@every 10m"). maxIdle is the idle cutoff for eviction.
func NewSweeper(store *Store, schedule string, maxIdle time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		cron:    cron.New(),
		store:   store,
		maxIdle: maxIdle,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("session sweeper: bad schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the sweep schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.logger.Info("session sweeper started", "max_idle", s.maxIdle)
	s.cron.Start()
}

// Stop halts the schedule; a sweep already in flight runs to completion.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) run() {
	s.store.Sweep(s.maxIdle)
}
