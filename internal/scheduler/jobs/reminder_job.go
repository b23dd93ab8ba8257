package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qualityhair-hub/internal/service"
)

type ReminderJob struct {
	bookingService *service.BookingService
	pendingAge     time.Duration
	bookingURL     string
	logger         *zap.Logger
}

func NewReminderJob(
	bookingService *service.BookingService,
	pendingAge time.Duration,
	bookingURL string,
	logger *zap.Logger,
) *ReminderJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pendingAge <= 0 {
		pendingAge = 72 * time.Hour
	}

	return &ReminderJob{
		bookingService: bookingService,
		pendingAge:     pendingAge,
		bookingURL:     bookingURL,
		logger:         logger,
	}
}

func (j *ReminderJob) SendReminders() {
	if j == nil || j.bookingService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sent, err := j.bookingService.SendPendingReminders(ctx, j.pendingAge, j.bookingURL)
	if err != nil {
		j.logger.Warn("booking reminder sweep failed", zap.Error(err))
		return
	}
	if sent > 0 {
		j.logger.Info("booking reminders sent", zap.Int("count", sent))
	}
}
