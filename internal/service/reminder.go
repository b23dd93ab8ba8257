package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"qualityhair-hub/internal/mailer"
	"qualityhair-hub/internal/metrics"
)

const reminderNoteMarker = "Booking reminder sent"

// SendPendingReminders nudges customers who paid for a consultation but
// never booked an appointment. Each consultation gets at most one reminder,
// tracked through its notes. Send failures are logged and do not stop the
// sweep.
func (s *BookingService) SendPendingReminders(
	ctx context.Context,
	olderThan time.Duration,
	bookingURL string,
) (int, error) {
	if s.consultationRepo == nil {
		return 0, errors.New("consultation repository is nil")
	}

	cutoff := s.now().UTC().Add(-olderThan)
	pending, err := s.consultationRepo.FindPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, consultation := range pending {
		if consultation == nil {
			continue
		}
		if consultation.Notes != nil && strings.Contains(*consultation.Notes, reminderNoteMarker) {
			continue
		}

		if s.sender != nil {
			sendErr := s.sender.SendBookingReminder(ctx, mailer.BookingReminderEmail{
				To:           consultation.CustomerEmail,
				CustomerName: consultation.CustomerName,
				PurchasedAt:  consultation.CreatedAt,
				BookingURL:   bookingURL,
			})
			if sendErr != nil {
				metrics.IncEmailFailure()
				s.logger.Warn("booking reminder email failed",
					zap.String("consultation_id", consultation.ID.String()),
					zap.Error(sendErr),
				)
				continue
			}
		}

		noteLine := reminderNoteMarker + " " + s.now().UTC().Format(time.RFC3339)
		if noteErr := s.consultationRepo.AppendNote(ctx, consultation.ID, noteLine); noteErr != nil {
			s.logger.Warn("could not record reminder note",
				zap.String("consultation_id", consultation.ID.String()),
				zap.Error(noteErr),
			)
			continue
		}
		sent++
	}

	return sent, nil
}
