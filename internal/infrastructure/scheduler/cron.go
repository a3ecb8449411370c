package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ClimateTrend/internal/ports"
)

// CronScheduler drives recurring pipeline runs from a cron expression.
type CronScheduler struct {
	spec    string
	cron    *cron.Cron
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from a five-field cron expression (or a
// descriptor such as "@daily"), evaluated in the given location.
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{spec: spec, cron: cron.New(cron.WithLocation(loc))}
}

// Start registers the job and begins the cron loop. The job also fires once
// right away, so a fresh deployment does not sit idle until the first tick.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || c.started {
		return nil
	}

	if _, err := c.cron.AddFunc(c.spec, func() { job(time.Now().In(c.cron.Location())) }); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	c.cron.Start()
	c.started = true

	go job(time.Now().In(c.cron.Location()))
	return nil
}

// Stop halts scheduling and waits for any in-flight cron job, or for ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if !c.started {
		return nil
	}
	c.started = false

	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
