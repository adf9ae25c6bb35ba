package usecase

import (
	"context"
	"time"

	"NewsAlerts/internal/ports"
)

// Scheduler wires the cron driver to the pass runner.
type Scheduler struct {
	driver ports.Driver
	runner *Runner
}

// NewScheduler returns a helper to start/stop recurring passes.
func NewScheduler(driver ports.Driver, runner *Runner) *Scheduler {
	return &Scheduler{driver: driver, runner: runner}
}

// Start registers the runner with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(time.Time) {
		s.runner.RunPass(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
