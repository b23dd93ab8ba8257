package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qualityhair-hub/internal/event"
	"qualityhair-hub/internal/mailer"
	"qualityhair-hub/internal/metrics"
	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

const (
	bookingEventInviteeCreated = "invitee.created"

	// codeAlphabet excludes the visually ambiguous I, O, 0 and 1.
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codePrefix        = "QH-"
	codeSuffixLength  = 6
	codeMaxAttempts   = 10
	codeValidWindow   = 48 * time.Hour
	codeAmountCents   = 1000
	codeCurrencyEuros = "eur"
)

var (
	ErrMalformedBookingPayload = errors.New("malformed booking payload")
	ErrCodeSpaceExhausted      = errors.New("could not generate a unique code")
)

// BookingEvent is the decoded body of a calendar webhook delivery.
type BookingEvent struct {
	Type string `json:"event"`

	InviteeEmail string
	InviteeName  string

	StartTime time.Time
	EventName string
	Location  string
}

// BookingOutcome tells the webhook handler what happened. Received is always
// true for acknowledged deliveries; Handled is false for filtered event types
// and for events with no matching pending consultation.
type BookingOutcome struct {
	Received         bool       `json:"received"`
	Handled          bool       `json:"handled"`
	Reason           string     `json:"reason,omitempty"`
	ConsultationID   *uuid.UUID `json:"consultation_id,omitempty"`
	DiscountCode     string     `json:"discount_code,omitempty"`
	ConsultationDate *time.Time `json:"consultation_date,omitempty"`
}

type BookingService struct {
	consultationRepo repository.ConsultationRepository
	codeRepo         repository.DiscountCodeRepository
	auditRepo        repository.AuditRepository
	sender           mailer.Sender
	bus              *event.Bus
	logger           *zap.Logger

	// injectable for tests
	now func() time.Time
}

func NewBookingService(
	consultationRepo repository.ConsultationRepository,
	codeRepo repository.DiscountCodeRepository,
	auditRepo repository.AuditRepository,
	sender mailer.Sender,
	bus *event.Bus,
	logger *zap.Logger,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BookingService{
		consultationRepo: consultationRepo,
		codeRepo:         codeRepo,
		auditRepo:        auditRepo,
		sender:           sender,
		bus:              bus,
		logger:           logger,
		now:              time.Now,
	}
}

// HandleBookingConfirmed processes one webhook delivery. Redelivery of the
// same event is safe: a consultation with a stamped date no longer matches
// the pending lookup, and the unique constraint on consultation_id catches
// the concurrent-delivery race.
func (s *BookingService) HandleBookingConfirmed(ctx context.Context, evt BookingEvent) (*BookingOutcome, error) {
	if s.consultationRepo == nil || s.codeRepo == nil {
		return nil, errors.New("booking service is not fully wired")
	}

	if evt.Type != bookingEventInviteeCreated {
		metrics.IncWebhookEvent("ignored_type")
		return &BookingOutcome{Received: true, Handled: false, Reason: "event type not handled"}, nil
	}

	email := strings.TrimSpace(evt.InviteeEmail)
	if email == "" || evt.StartTime.IsZero() {
		metrics.IncWebhookEvent("malformed")
		return nil, ErrMalformedBookingPayload
	}

	startedAt := s.now()

	consultation, err := s.consultationRepo.FindLatestPendingByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.IncWebhookEvent("no_match")
			s.logger.Info("booking event without pending consultation",
				zap.String("email", email),
			)
			return &BookingOutcome{Received: true, Handled: false, Reason: "no pending consultation"}, nil
		}
		metrics.IncWebhookEvent("error")
		return nil, err
	}

	confirmedAt := evt.StartTime.UTC()
	noteLine := bookingNoteLine(confirmedAt, evt.EventName, evt.Location)
	if err := s.consultationRepo.ConfirmBooking(ctx, consultation.ID, confirmedAt, noteLine); err != nil {
		metrics.IncWebhookEvent("error")
		return nil, err
	}

	code, reused, err := s.ensureDiscountCode(ctx, consultation.ID, confirmedAt)
	if err != nil {
		metrics.IncWebhookEvent("error")
		return nil, err
	}

	metrics.IncWebhookEvent("handled")
	metrics.ObserveCodeIssueDuration(s.now().Sub(startedAt))

	s.publishConfirmed(consultation, confirmedAt, code, reused)
	s.writeBookingAudit(ctx, consultation, confirmedAt, code, reused)
	s.sendCodeEmail(ctx, consultation, evt, code)

	return &BookingOutcome{
		Received:         true,
		Handled:          true,
		ConsultationID:   &consultation.ID,
		DiscountCode:     code.Code,
		ConsultationDate: &confirmedAt,
	}, nil
}

// ensureDiscountCode returns the consultation's code, creating it when
// missing. The reused flag is true when the code already existed.
func (s *BookingService) ensureDiscountCode(
	ctx context.Context,
	consultationID uuid.UUID,
	activationDate time.Time,
) (*model.DiscountCode, bool, error) {
	existing, err := s.codeRepo.FindByConsultationID(ctx, consultationID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	codeValue, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, false, err
	}

	code := &model.DiscountCode{
		ID:             uuid.New(),
		Code:           codeValue,
		ConsultationID: consultationID,
		AmountCents:    codeAmountCents,
		Currency:       codeCurrencyEuros,
		ActivationDate: activationDate,
		ExpiresAt:      activationDate.Add(codeValidWindow),
		Used:           false,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.codeRepo.Create(ctx, code); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent delivery won the insert. Use its code.
			winner, fetchErr := s.codeRepo.FindByConsultationID(ctx, consultationID)
			if fetchErr != nil {
				return nil, false, fetchErr
			}
			return winner, true, nil
		}
		return nil, false, err
	}

	metrics.IncCodeIssued()
	return code, false, nil
}

func (s *BookingService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		candidate, err := randomCode()
		if err != nil {
			return "", err
		}

		exists, err := s.codeRepo.CodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}

		s.logger.Warn("discount code collision, retrying",
			zap.String("code", candidate),
			zap.Int("attempt", attempt+1),
		)
	}

	return "", ErrCodeSpaceExhausted
}

func randomCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(codeAlphabet)))
	suffix := make([]byte, codeSuffixLength)
	for i := range suffix {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		suffix[i] = codeAlphabet[idx.Int64()]
	}
	return codePrefix + string(suffix), nil
}

func bookingNoteLine(confirmedAt time.Time, eventName, location string) string {
	line := fmt.Sprintf("Booking confirmed for %s", confirmedAt.Format(time.RFC3339))
	if name := strings.TrimSpace(eventName); name != "" {
		line += " (" + name + ")"
	}
	if loc := strings.TrimSpace(location); loc != "" {
		line += " at " + loc
	}
	return line
}

func (s *BookingService) publishConfirmed(
	consultation *model.Consultation,
	confirmedAt time.Time,
	code *model.DiscountCode,
	reused bool,
) {
	if s.bus == nil {
		return
	}

	s.bus.Publish(event.EventConsultationConfirmed, event.ConsultationConfirmedPayload{
		ConsultationID:   consultation.ID.String(),
		CustomerEmail:    consultation.CustomerEmail,
		ConsultationDate: confirmedAt,
	})
	s.bus.Publish(event.EventCodeIssued, event.CodeIssuedPayload{
		ConsultationID: consultation.ID.String(),
		Code:           code.Code,
		ExpiresAt:      code.ExpiresAt,
		Reused:         reused,
	})
}

func (s *BookingService) writeBookingAudit(
	ctx context.Context,
	consultation *model.Consultation,
	confirmedAt time.Time,
	code *model.DiscountCode,
	reused bool,
) {
	if s.auditRepo == nil {
		return
	}

	resourceID := consultation.ID.String()
	actor := consultation.CustomerEmail
	_ = s.auditRepo.Create(ctx, &model.AuditLog{
		ActorEmail:   &actor,
		Action:       "consultation.booking_confirmed",
		ResourceType: strPtr("consultation"),
		ResourceID:   &resourceID,
		NewValue: map[string]interface{}{
			"consultation_date": confirmedAt.Format(time.RFC3339),
			"discount_code":     code.Code,
			"code_reused":       reused,
		},
		CreatedAt: s.now().UTC(),
	})
}

// sendCodeEmail is best-effort. A failed send is logged and counted but the
// webhook still succeeds, the code is already durable.
func (s *BookingService) sendCodeEmail(
	ctx context.Context,
	consultation *model.Consultation,
	evt BookingEvent,
	code *model.DiscountCode,
) {
	if s.sender == nil {
		return
	}

	msg := mailer.DiscountCodeEmail{
		To:                  consultation.CustomerEmail,
		CustomerName:        consultation.CustomerName,
		Code:                code.Code,
		AmountLabel:         formatAmount(code.AmountCents, code.Currency),
		ActivationDate:      code.ActivationDate,
		ExpiresAt:           code.ExpiresAt,
		AppointmentName:     evt.EventName,
		AppointmentTime:     evt.StartTime,
		AppointmentLocation: evt.Location,
	}

	if err := s.sender.SendDiscountCode(ctx, msg); err != nil {
		metrics.IncEmailFailure()
		s.logger.Warn("discount code email failed",
			zap.String("consultation_id", consultation.ID.String()),
			zap.Error(err),
		)
	}
}

func formatAmount(cents int64, currency string) string {
	symbol := strings.ToUpper(strings.TrimSpace(currency)) + " "
	switch strings.ToLower(strings.TrimSpace(currency)) {
	case "eur":
		symbol = "€"
	case "usd":
		symbol = "$"
	}
	return fmt.Sprintf("%s%d.%02d", symbol, cents/100, cents%100)
}

func strPtr(v string) *string {
	return &v
}
