// Package scheduler triggers transform runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/pipeline"
	"github.com/robfig/cron/v3"
)

// Runner executes one transform run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

// Scheduler runs the pipeline on a standard five-field cron spec or a
// descriptor such as @daily or @every 6h. Ticks that fire while a run is
// still going are skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	runner Runner
	logger *slog.Logger
	adhoc  sync.WaitGroup
}

// New validates spec and builds a Scheduler. Times are evaluated in UTC.
func New(spec string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, spec: spec, runner: runner, logger: logger}, nil
}

// Start registers the job and starts the scheduler in the background. Runs
// use ctx, so cancelling it aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() { RunOnce(ctx, s.runner, s.logger) })
	if err != nil {
		return fmt.Errorf("schedule transform: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "next_run", s.cron.Entry(id).Next)
	return nil
}

// RunNow starts one run in the background outside the schedule. Stop waits
// for it like a scheduled run.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.adhoc.Go(func() { RunOnce(ctx, s.runner, s.logger) }) //nolint:errcheck // logged by RunOnce
}

// Stop stops scheduling new runs. The returned context is done once every
// in-flight run, scheduled or started by RunNow, has returned.
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.adhoc.Wait()
		cancel()
	}()
	return ctx
}

// RunOnce executes a single run and logs its outcome.
func RunOnce(ctx context.Context, runner Runner, logger *slog.Logger) error {
	_, err := runner.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrRunInProgress):
		logger.Info("transform run skipped", "reason", err)
	case ctx.Err() != nil:
		logger.Info("transform run cancelled", "reason", ctx.Err())
	default:
		logger.Error("scheduled transform run failed", "error", err)
	}
	return err
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
