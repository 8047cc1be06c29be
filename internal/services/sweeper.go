package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/openmapping/tasking/internal/db/repos"
	"github.com/openmapping/tasking/internal/logger"
)

// DefaultSweepSchedule runs the stale lock sweep every five minutes
const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically clears stale locks in every project that has locked tasks
type Sweeper struct {
	store    *repos.Store
	tasks    *Task
	schedule string
	cron     *cron.Cron
	// running serializes sweeps when a run outlasts the schedule interval
	running sync.Mutex
}

// NewSweeper creates a sweeper that runs on schedule, a robfig/cron expression
func NewSweeper(store *repos.Store, tasks *Task, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		store:    store,
		tasks:    tasks,
		schedule: schedule,
	}
}

// RunOnce sweeps every project with locked tasks and returns the number of
// locks cleared. A failing project is logged and skipped.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	s.running.Lock()
	defer s.running.Unlock()

	projectIDs, err := s.store.Tasks.ProjectIDsWithLockedTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list projects with locked tasks: %w", err)
	}

	total := 0
	for _, id := range projectIDs {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.tasks.AutoUnlockTasks(ctx, id)
		if err != nil {
			logger.Errorf("Sweeper failed on project %d: %v", id, err)
			continue
		}
		total += n
	}
	logger.Debugf("Sweeper cleared %d stale locks across %d projects", total, len(projectIDs))
	return total, nil
}

// Start schedules the sweep. It returns an error for an invalid schedule.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			logger.Errorf("Sweeper run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	logger.Infof("Sweeper started with schedule %q", s.schedule)
	return nil
}

// Stop unschedules the sweep and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	logger.Info("Sweeper stopped")
}

// LaunchSweeper runs the sweeper until ctx is cancelled
func LaunchSweeper(ctx context.Context, wg *sync.WaitGroup, sweeper *Sweeper) {
	defer wg.Done()

	if err := sweeper.Start(ctx); err != nil {
		logger.Errorf("Sweeper not started: %v", err)
		return
	}
	<-ctx.Done()
	logger.Info("Sweeper received shutdown signal, stopping...")
	sweeper.Stop()
}
