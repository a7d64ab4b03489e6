// Package jobs holds the scheduled background work of the worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/service/assignment"
)

type autoAssigner interface {
	AutoAssign(ctx context.Context, date time.Time) (assignment.AutoAssignResult, error)
}

// AutoAssignJob runs automatic courier assignment for the current day of
// the operating timezone on a cron schedule.
type AutoAssignJob struct {
	engine autoAssigner
	spec   string
	loc    *time.Location
	logger logx.Logger
	now    func() time.Time
}

// NewAutoAssignJob creates the job. spec is a standard five-field cron
// expression evaluated in loc.
func NewAutoAssignJob(engine autoAssigner, spec string, loc *time.Location, logger logx.Logger) *AutoAssignJob {
	if logger == nil {
		logger = logx.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AutoAssignJob{
		engine: engine,
		spec:   spec,
		loc:    loc,
		logger: logger.With(logx.String("component", "auto_assign_job")),
		now:    time.Now,
	}
}

// WithClock replaces the clock used to pick the run date.
func (j *AutoAssignJob) WithClock(now func() time.Time) *AutoAssignJob {
	if now != nil {
		j.now = now
	}
	return j
}

// Run schedules the job and blocks until ctx is canceled. Runs in flight
// are allowed to finish before it returns.
func (j *AutoAssignJob) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(j.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(j.spec, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule auto assign %q: %w", j.spec, err)
	}

	c.Start()
	j.logger.Info("auto assign job started", logx.String("schedule", j.spec), logx.String("timezone", j.loc.String()))

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("auto assign job stopped")
	return ctx.Err()
}

// RunOnce assigns couriers for today. Failures are logged; the next tick
// tries again.
func (j *AutoAssignJob) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	date := domain.DateOf(j.now(), j.loc)
	res, err := j.engine.AutoAssign(ctx, date)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		j.logger.Error("auto assign run failed",
			logx.Date("date", date),
			logx.Err(err),
		)
		return
	}
	if len(res.UncoveredSlots) > 0 {
		j.logger.Warn("slots left without enough couriers",
			logx.Date("date", date),
			logx.Any("slot_ids", res.UncoveredSlots),
		)
	}
}
