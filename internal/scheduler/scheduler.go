// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TaskFn is the body of a scheduled job. The context is cancelled when the
// scheduler stops.
type TaskFn func(ctx context.Context) error

// Scheduler wraps a cron runner. Jobs never overlap with themselves: a run
// that is still going when the next one is due causes that next run to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped Scheduler evaluating schedules in loc.
func New(logger *zap.Logger, loc *time.Location) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers fn under name on a standard five-field cron spec.
func (s *Scheduler) AddJob(name, spec string, fn TaskFn) error {
	if _, err := s.cron.AddFunc(spec, s.taskWithRecover(name, fn)); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	s.logger.Info("job scheduled", zap.String("jobName", name), zap.String("spec", spec))
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the context of running jobs and waits for them to return or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}

// Next returns the next activation time of every job.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, len(entries))
	for i, e := range entries {
		next[i] = e.Next
	}
	return next
}

func (s *Scheduler) taskWithRecover(name string, fn TaskFn) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic recovered in scheduler job",
					zap.String("jobName", name),
					zap.Any("panic", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		start := time.Now()
		s.logger.Info("job start", zap.String("jobName", name))

		if err := fn(s.ctx); err != nil {
			s.logger.Error("job failed", zap.String("jobName", name), zap.Duration("duration", time.Since(start)), zap.Error(err))
			return
		}
		s.logger.Info("job completed", zap.String("jobName", name), zap.Duration("duration", time.Since(start)))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
