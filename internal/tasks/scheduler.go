package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Task is a unit of scheduled work. Errors are the task's own business.
type Task func(ctx context.Context)

// SyncTask adapts an engine pass to a [Task], logging failures instead of returning them.
func SyncTask(engine *AlbumEngine, logger *log.Logger) Task {
	return func(ctx context.Context) {
		result, err := engine.Sync(ctx, nil)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("scheduled sync failed", "error", err)
			return
		}
		logger.Info("scheduled sync finished", "run_id", result.RunID, "status", result.Status, "albums", len(result.Albums))
	}
}

// Scheduler runs a [Task] every interval, never two at once.
type Scheduler struct {
	interval  time.Duration
	task      Task
	logger    *log.Logger
	immediate bool

	running sync.Mutex
	wg      sync.WaitGroup
	runs    atomic.Int64
	skipped atomic.Int64
}

// NewScheduler creates a scheduler. When immediate is set, [Scheduler.Run] fires the task once before the first tick.
func NewScheduler(interval time.Duration, task Task, immediate bool, logger *log.Logger) *Scheduler {
	return &Scheduler{interval: interval, task: task, immediate: immediate, logger: logger}
}

// Run blocks until ctx is cancelled, triggering the task on every tick.
// It returns once any in-flight run has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.logger.Info("scheduler started", "interval", s.interval)

	if s.immediate {
		s.Trigger(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "runs", s.Runs(), "skipped", s.Skipped())
			return nil
		case <-ticker.C:
			s.Trigger(ctx)
		}
	}
}

// Trigger starts the task in the background unless a run is already in progress.
// It reports whether a run was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.skipped.Add(1)
		s.logger.Warn("previous run still in progress, skipping tick")
		return false
	}

	s.runs.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.task(ctx)
	}()
	return true
}

// Wait blocks until the in-flight run, if any, returns.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Runs returns how many times the task has been started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skipped returns how many triggers were dropped because a run was in progress.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }
