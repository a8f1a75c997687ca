// Package scheduler runs inbox retention on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler prunes deliveries older than the retention window.
type Scheduler struct {
	pruner    Pruner
	retention time.Duration
	spec      string
	schedule  cron.Schedule
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
	stopOnce  sync.Once
}

// New creates a Scheduler. spec is a standard 5-field cron expression or a
// descriptor such as @hourly or @every 30m.
func New(pruner Pruner, retention time.Duration, spec string, logger *slog.Logger) (*Scheduler, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse prune schedule %q: %w", spec, err)
	}
	return &Scheduler{
		pruner:    pruner,
		retention: retention,
		spec:      spec,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger.With("component", "scheduler"),
		now:       time.Now,
	}, nil
}

// Start prunes once immediately, then on every scheduled tick until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting inbox retention", "retention", s.retention.String(), "schedule", s.spec)

	if _, err := s.PruneOnce(ctx); err != nil {
		return fmt.Errorf("initial prune failed: %w", err)
	}

	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.PruneOnce(ctx); err != nil {
			s.logger.Error("inbox prune failed", "error", err)
		}
	}))
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.logger.Info("inbox retention stopped")
	})
}

// PruneOnce deletes deliveries older than now minus the retention window.
func (s *Scheduler) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned inbox", "deleted", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	} else {
		s.logger.Debug("inbox prune found nothing", "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}
