package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
)

// Scheduler runs the returned-request retention sweep on a schedule.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger

	sweepEntryID cron.EntryID
}

// NewScheduler creates a Scheduler that sweeps returned requests every
// sweepInterval.
func NewScheduler(
	eng *Engine,
	sweepInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	id, err := c.AddFunc("@every "+sweepInterval.String(), s.runSweep)
	if err != nil {
		return nil, err
	}
	s.sweepEntryID = id

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
	s.SyncNextRunTimestamp()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamp publishes the next sweep time as a gauge.
func (s *Scheduler) SyncNextRunTimestamp() {
	next := s.cron.Entry(s.sweepEntryID).Next
	if next.IsZero() {
		return
	}
	metrics.SweepNextRunTimestamp.Set(float64(next.Unix()))
}

func (s *Scheduler) runSweep() {
	ctx := context.Background()
	defer s.SyncNextRunTimestamp()

	s.log.Info("scheduled retention sweep starting")
	if _, err := s.engine.SweepReturned(ctx, s.engine.now()); err != nil {
		s.log.Error("scheduled retention sweep failed", "error", err)
	}
}
