// Package scheduler runs the periodic background work: booking reminders
// for paid-but-unscheduled consultations and the business gauge refresh.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	specBookingReminder = "0 0 * * * *"
	specStatsSweep      = "0 */10 * * * *"
)

type ReminderTask interface {
	SendReminders()
}

type StatsTask interface {
	RefreshGauges()
}

type Deps struct {
	ReminderJob ReminderTask
	StatsJob    StatsTask
}

func NewScheduler(deps Deps, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.ReminderJob != nil {
		addFunc(c, specBookingReminder, "booking.send_reminders", logger, deps.ReminderJob.SendReminders)
	}
	if deps.StatsJob != nil {
		addFunc(c, specStatsSweep, "stats.refresh_gauges", logger, deps.StatsJob.RefreshGauges)
	}

	return c
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if logger == nil {
		return
	}

	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
