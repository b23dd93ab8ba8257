package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

var codePattern = regexp.MustCompile(`^QH-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{6}$`)

func newTestBookingService(
	consultations *fakeConsultationRepo,
	codes *fakeCodeRepo,
	audits *fakeAuditRepo,
	sender *fakeSender,
) *BookingService {
	svc := NewBookingService(consultations, codes, nil, nil, nil, nil)
	if audits != nil {
		svc.auditRepo = audits
	}
	if sender != nil {
		svc.sender = sender
	}
	svc.now = func() time.Time {
		return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestHandleBookingConfirmed_IgnoresOtherEventTypes(t *testing.T) {
	consultations := newFakeConsultationRepo()
	codes := newFakeCodeRepo()
	svc := newTestBookingService(consultations, codes, nil, nil)

	outcome, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.canceled",
		InviteeEmail: "anna@example.com",
		StartTime:    time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !outcome.Received || outcome.Handled {
		t.Fatalf("expected received but unhandled, got %+v", outcome)
	}
	if codes.createCalls != 0 {
		t.Fatalf("expected no code inserts, got %d", codes.createCalls)
	}
}

func TestHandleBookingConfirmed_MalformedPayload(t *testing.T) {
	svc := newTestBookingService(newFakeConsultationRepo(), newFakeCodeRepo(), nil, nil)

	cases := []BookingEvent{
		{Type: "invitee.created", InviteeEmail: "", StartTime: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)},
		{Type: "invitee.created", InviteeEmail: "   ", StartTime: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)},
		{Type: "invitee.created", InviteeEmail: "anna@example.com"},
	}

	for i, evt := range cases {
		_, err := svc.HandleBookingConfirmed(context.Background(), evt)
		if !errors.Is(err, ErrMalformedBookingPayload) {
			t.Fatalf("case %d: expected ErrMalformedBookingPayload, got %v", i, err)
		}
	}
}

func TestHandleBookingConfirmed_NoPendingConsultation(t *testing.T) {
	svc := newTestBookingService(newFakeConsultationRepo(), newFakeCodeRepo(), nil, nil)

	outcome, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.created",
		InviteeEmail: "nobody@example.com",
		StartTime:    time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected no error for unmatched booking, got %v", err)
	}
	if !outcome.Received || outcome.Handled {
		t.Fatalf("expected received but unhandled, got %+v", outcome)
	}
	if outcome.Reason != "no pending consultation" {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
}

func TestHandleBookingConfirmed_ConfirmsAndIssuesCode(t *testing.T) {
	consultations := newFakeConsultationRepo()
	codes := newFakeCodeRepo()
	audits := &fakeAuditRepo{}
	sender := &fakeSender{}
	svc := newTestBookingService(consultations, codes, audits, sender)

	created := time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)
	consultation := seedPendingConsultation(consultations, "anna@example.com", created)

	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	outcome, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.created",
		InviteeEmail: "anna@example.com",
		InviteeName:  "Anna",
		StartTime:    start,
		EventName:    "Hair Consultation",
		Location:     "Studio Amsterdam",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !outcome.Handled {
		t.Fatalf("expected handled outcome, got %+v", outcome)
	}
	if outcome.ConsultationID == nil || *outcome.ConsultationID != consultation.ID {
		t.Fatalf("expected consultation id %s, got %+v", consultation.ID, outcome.ConsultationID)
	}

	if consultation.Status != model.ConsultationStatusCompleted {
		t.Fatalf("expected status completed, got %q", consultation.Status)
	}
	if consultation.ConsultationDate == nil || !consultation.ConsultationDate.Equal(start) {
		t.Fatalf("expected consultation date %s, got %+v", start, consultation.ConsultationDate)
	}

	if !codePattern.MatchString(outcome.DiscountCode) {
		t.Fatalf("code %q does not match the expected format", outcome.DiscountCode)
	}

	code, findErr := codes.FindByConsultationID(context.Background(), consultation.ID)
	if findErr != nil {
		t.Fatalf("expected persisted code, got %v", findErr)
	}
	if code.AmountCents != 1000 || code.Currency != "eur" {
		t.Fatalf("expected 1000 cent eur code, got %d %s", code.AmountCents, code.Currency)
	}
	if !code.ActivationDate.Equal(start) {
		t.Fatalf("expected activation at %s, got %s", start, code.ActivationDate)
	}
	if !code.ExpiresAt.Equal(start.Add(48 * time.Hour)) {
		t.Fatalf("expected expiry at %s, got %s", start.Add(48*time.Hour), code.ExpiresAt)
	}

	if !audits.hasAction("consultation.booking_confirmed") {
		t.Fatal("expected a booking_confirmed audit entry")
	}
	if len(sender.discountEmails) != 1 {
		t.Fatalf("expected one discount email, got %d", len(sender.discountEmails))
	}
	if sender.discountEmails[0].Code != outcome.DiscountCode {
		t.Fatalf("email carries code %q, outcome %q", sender.discountEmails[0].Code, outcome.DiscountCode)
	}
}

func TestHandleBookingConfirmed_ReusesExistingCode(t *testing.T) {
	consultations := newFakeConsultationRepo()
	codes := newFakeCodeRepo()
	svc := newTestBookingService(consultations, codes, nil, nil)

	consultation := seedPendingConsultation(consultations, "anna@example.com", time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC))
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	existing := &model.DiscountCode{
		ID:             uuid.New(),
		Code:           "QH-EXIST2",
		ConsultationID: consultation.ID,
		AmountCents:    1000,
		Currency:       "eur",
		ActivationDate: start,
		ExpiresAt:      start.Add(48 * time.Hour),
	}
	codes.seed(existing)

	outcome, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.created",
		InviteeEmail: "anna@example.com",
		StartTime:    start,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if outcome.DiscountCode != existing.Code {
		t.Fatalf("expected reused code %q, got %q", existing.Code, outcome.DiscountCode)
	}
	if codes.createCalls != 0 {
		t.Fatalf("expected no new insert, got %d", codes.createCalls)
	}
}

func TestHandleBookingConfirmed_DuplicateInsertUsesWinner(t *testing.T) {
	consultations := newFakeConsultationRepo()
	codes := newFakeCodeRepo()
	svc := newTestBookingService(consultations, codes, nil, nil)

	consultation := seedPendingConsultation(consultations, "anna@example.com", time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC))
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	winner := &model.DiscountCode{
		ID:             uuid.New(),
		Code:           "QH-WINNER",
		ConsultationID: consultation.ID,
		AmountCents:    1000,
		Currency:       "eur",
		ActivationDate: start,
		ExpiresAt:      start.Add(48 * time.Hour),
	}
	codes.onCreate = func(_ *model.DiscountCode) error {
		// A concurrent delivery lands between the lookup and the insert.
		codes.seed(winner)
		return repository.ErrDuplicate
	}

	outcome, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.created",
		InviteeEmail: "anna@example.com",
		StartTime:    start,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if outcome.DiscountCode != winner.Code {
		t.Fatalf("expected winner code %q, got %q", winner.Code, outcome.DiscountCode)
	}
}

func TestHandleBookingConfirmed_CodeSpaceExhausted(t *testing.T) {
	consultations := newFakeConsultationRepo()
	codes := newFakeCodeRepo()
	codes.existsAlways = true
	svc := newTestBookingService(consultations, codes, nil, nil)

	seedPendingConsultation(consultations, "anna@example.com", time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC))

	_, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.created",
		InviteeEmail: "anna@example.com",
		StartTime:    time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}

func TestHandleBookingConfirmed_EmailFailureDoesNotFailWebhook(t *testing.T) {
	consultations := newFakeConsultationRepo()
	codes := newFakeCodeRepo()
	sender := &fakeSender{sendErr: errors.New("smtp down")}
	svc := newTestBookingService(consultations, codes, nil, sender)

	seedPendingConsultation(consultations, "anna@example.com", time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC))

	outcome, err := svc.HandleBookingConfirmed(context.Background(), BookingEvent{
		Type:         "invitee.created",
		InviteeEmail: "anna@example.com",
		StartTime:    time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected success despite email failure, got %v", err)
	}
	if !outcome.Handled || outcome.DiscountCode == "" {
		t.Fatalf("expected handled outcome with code, got %+v", outcome)
	}
}

func TestRandomCode_Format(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !codePattern.MatchString(code) {
			t.Fatalf("code %q does not match the expected format", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 45 {
		t.Fatalf("expected mostly distinct codes, got %d unique of 50", len(seen))
	}
}
