// Package schedule runs the sync operations on a recurring timer. Task
// bodies are idempotent, so a run that fails is simply retried at the next
// tick; the scheduler itself never retries.
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is one named recurring job.
type Task struct {
	Name     string
	Interval time.Duration
	// AlignMidnight delays the second run until the next UTC midnight, so
	// daily jobs tick on calendar-day boundaries.
	AlignMidnight bool
	Run           func(ctx context.Context) error
}

type Scheduler struct {
	log   *zap.Logger
	tasks []Task
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{log: logger}
}

func (s *Scheduler) Add(task Task) {
	s.tasks = append(s.tasks, task)
}

// Start launches one goroutine per task. Each task runs immediately once,
// then on its interval, until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		go s.loop(ctx, task)
	}
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	s.runOnce(ctx, task)

	if task.AlignMidnight {
		now := time.Now().UTC()
		nextMidnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		select {
		case <-time.After(time.Until(nextMidnight)):
			s.runOnce(ctx, task)
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, task)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.log.Warn("task failed", zap.String("task", task.Name), zap.Error(err))
		return
	}
	s.log.Info("task completed",
		zap.String("task", task.Name),
		zap.Duration("elapsed", time.Since(start)))
}
