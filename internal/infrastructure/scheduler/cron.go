package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"NewsAlerts/internal/ports"
)

// CronDriver triggers jobs on a cron spec via robfig/cron.
type CronDriver struct {
	spec     string
	location *time.Location
	cron     *cron.Cron
}

var _ ports.Driver = (*CronDriver)(nil)

// NewCronDriver builds a driver for the given cron expression and timezone.
func NewCronDriver(spec string, location *time.Location) *CronDriver {
	if location == nil {
		location = time.UTC
	}
	return &CronDriver{spec: spec, location: location}
}

// Start schedules the job; overlap protection lives in the job itself
// (the runner drops triggers while a pass is in flight).
func (c *CronDriver) Start(_ context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	c.cron = cron.New(cron.WithLocation(c.location))
	if _, err := c.cron.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("register cron job %q: %w", c.spec, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running job to finish, bounded
// by the caller's context.
func (c *CronDriver) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}

	stopped := c.cron.Stop()
	c.cron = nil

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
