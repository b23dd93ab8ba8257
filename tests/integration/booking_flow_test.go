//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

func calendlyInviteeCreated(email string, start time.Time) string {
	return fmt.Sprintf(`{
		"event": "invitee.created",
		"payload": {
			"invitee": {"email": %q, "name": "Integration Tester"},
			"scheduled_event": {
				"start_time": %q,
				"name": "Hair Consultation",
				"location": {"type": "zoom", "location": "https://zoom.example/j/1"}
			}
		}
	}`, email, start.Format(time.RFC3339))
}

func insertPendingConsultation(t *testing.T, email string, createdAt time.Time) *model.Consultation {
	t.Helper()

	consultation := &model.Consultation{
		CustomerName:  "Integration Tester",
		CustomerEmail: email,
		Status:        model.ConsultationStatusPaid,
		AmountCents:   15000,
		Currency:      "eur",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := suite.consultationRepo.Create(context.Background(), consultation); err != nil {
		t.Fatalf("create consultation: %v", err)
	}
	return consultation
}

func TestCheckoutToDiscountCodeFlow(t *testing.T) {
	email := fmt.Sprintf("flow-%s@example.com", uuid.NewString()[:8])

	checkoutBody := fmt.Sprintf(`{
		"customerName": "Flow Tester",
		"customerEmail": %q,
		"hairType": "thick-long",
		"concerns": ["thinning", "breakage"]
	}`, email)

	rec, envelope := doJSON(t, http.MethodPost, "/api/create-consultation-checkout", checkoutBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, body %s", rec.Code, rec.Body.String())
	}
	if envelope.Code != response.CodeSuccess {
		t.Fatalf("checkout envelope code = %d", envelope.Code)
	}

	pending, err := suite.consultationRepo.FindLatestPendingByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("pending lookup after checkout: %v", err)
	}
	if pending.AmountCents != 15000 || pending.Currency != "eur" {
		t.Fatalf("persisted consultation = %d %s, want 15000 eur", pending.AmountCents, pending.Currency)
	}
	if pending.StripeSessionID == nil || *pending.StripeSessionID != "cs_integration_"+email {
		t.Fatalf("stripe session id not stored, got %v", pending.StripeSessionID)
	}

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	rec, envelope = doJSON(t, http.MethodPost, "/api/webhook-calendly", calendlyInviteeCreated(email, start), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, body %s", rec.Code, rec.Body.String())
	}
	if envelope.Code != response.CodeSuccess {
		t.Fatalf("webhook envelope code = %d", envelope.Code)
	}

	confirmed, err := suite.consultationRepo.FindByID(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("reload consultation: %v", err)
	}
	if confirmed.Status != model.ConsultationStatusCompleted {
		t.Fatalf("status after webhook = %q, want completed", confirmed.Status)
	}
	if confirmed.ConsultationDate == nil || !confirmed.ConsultationDate.UTC().Equal(start) {
		t.Fatalf("consultation date = %v, want %v", confirmed.ConsultationDate, start)
	}

	code, err := suite.codeRepo.FindByConsultationID(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("issued code lookup: %v", err)
	}
	if code.AmountCents != 1000 || code.Currency != "eur" {
		t.Fatalf("code value = %d %s, want 1000 eur", code.AmountCents, code.Currency)
	}
	if got := code.ExpiresAt.Sub(code.ActivationDate); got != 48*time.Hour {
		t.Fatalf("code validity window = %v, want 48h", got)
	}

	rec, envelope = doJSON(t, http.MethodGet, "/api/v1/codes/"+strings.ToLower(code.Code), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code lookup status = %d, body %s", rec.Code, rec.Body.String())
	}
	var lookup struct {
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(envelope.Data, &lookup); err != nil {
		t.Fatalf("decode lookup data: %v", err)
	}
	if lookup.Code != code.Code || !lookup.Active {
		t.Fatalf("lookup = %+v, want code %s active", lookup, code.Code)
	}
}

func TestWebhookRedeliveryIssuesNoSecondCode(t *testing.T) {
	email := fmt.Sprintf("redelivery-%s@example.com", uuid.NewString()[:8])
	consultation := insertPendingConsultation(t, email, time.Now().UTC())

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	body := calendlyInviteeCreated(email, start)

	rec, _ := doJSON(t, http.MethodPost, "/api/webhook-calendly", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", rec.Code)
	}
	first, err := suite.codeRepo.FindByConsultationID(context.Background(), consultation.ID)
	if err != nil {
		t.Fatalf("code after first delivery: %v", err)
	}

	rec, _ = doJSON(t, http.MethodPost, "/api/webhook-calendly", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d", rec.Code)
	}
	second, err := suite.codeRepo.FindByConsultationID(context.Background(), consultation.ID)
	if err != nil {
		t.Fatalf("code after redelivery: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Fatalf("redelivery changed the issued code: %s -> %s", first.Code, second.Code)
	}
}

func TestDiscountCodeUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	first := insertPendingConsultation(t, fmt.Sprintf("uniq-a-%s@example.com", uuid.NewString()[:8]), time.Now().UTC())
	other := insertPendingConsultation(t, fmt.Sprintf("uniq-b-%s@example.com", uuid.NewString()[:8]), time.Now().UTC())

	now := time.Now().UTC()
	base := &model.DiscountCode{
		Code:           "QH-UNIQ2A",
		ConsultationID: first.ID,
		AmountCents:    1000,
		Currency:       "eur",
		ActivationDate: now,
		ExpiresAt:      now.Add(48 * time.Hour),
	}
	if err := suite.codeRepo.Create(ctx, base); err != nil {
		t.Fatalf("seed code: %v", err)
	}

	dupCode := &model.DiscountCode{
		Code:           base.Code,
		ConsultationID: other.ID,
		AmountCents:    1000,
		Currency:       "eur",
		ActivationDate: now,
		ExpiresAt:      now.Add(48 * time.Hour),
	}
	if err := suite.codeRepo.Create(ctx, dupCode); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate code insert err = %v, want ErrDuplicate", err)
	}

	dupConsultation := &model.DiscountCode{
		Code:           "QH-UNIQ2B",
		ConsultationID: first.ID,
		AmountCents:    1000,
		Currency:       "eur",
		ActivationDate: now,
		ExpiresAt:      now.Add(48 * time.Hour),
	}
	if err := suite.codeRepo.Create(ctx, dupConsultation); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate consultation insert err = %v, want ErrDuplicate", err)
	}

	exists, err := suite.codeRepo.CodeExists(ctx, base.Code)
	if err != nil {
		t.Fatalf("code exists: %v", err)
	}
	if !exists {
		t.Fatal("seeded code not reported as existing")
	}
}

func TestFindLatestPendingByEmailPicksNewest(t *testing.T) {
	email := fmt.Sprintf("latest-%s@example.com", uuid.NewString()[:8])
	older := insertPendingConsultation(t, email, time.Now().UTC().Add(-2*time.Hour))
	newer := insertPendingConsultation(t, email, time.Now().UTC().Add(-10*time.Minute))

	got, err := suite.consultationRepo.FindLatestPendingByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("latest pending: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("latest pending = %s, want %s (older was %s)", got.ID, newer.ID, older.ID)
	}
}

func TestAppendNotePreservesPriorLines(t *testing.T) {
	ctx := context.Background()
	consultation := insertPendingConsultation(t, fmt.Sprintf("notes-%s@example.com", uuid.NewString()[:8]), time.Now().UTC())

	if err := suite.consultationRepo.AppendNote(ctx, consultation.ID, "first line"); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := suite.consultationRepo.AppendNote(ctx, consultation.ID, "second line"); err != nil {
		t.Fatalf("second append: %v", err)
	}

	reloaded, err := suite.consultationRepo.FindByID(ctx, consultation.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Notes == nil || *reloaded.Notes != "first line\nsecond line" {
		t.Fatalf("notes = %v, want two appended lines", reloaded.Notes)
	}

	if err := suite.consultationRepo.AppendNote(ctx, uuid.New(), "orphan"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("append to missing row err = %v, want ErrNotFound", err)
	}
}

func TestAdminEndpointsRequireInternalToken(t *testing.T) {
	rec, envelope := doJSON(t, http.MethodGet, "/api/v1/consultations", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tokenless status = %d, want 401", rec.Code)
	}
	if envelope.Code != response.ErrUnauthorized {
		t.Fatalf("tokenless envelope code = %d", envelope.Code)
	}

	rec, envelope = doJSON(t, http.MethodGet, "/api/v1/consultations", "", adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list status = %d, body %s", rec.Code, rec.Body.String())
	}
	if envelope.Code != response.CodeSuccess {
		t.Fatalf("admin list envelope code = %d", envelope.Code)
	}
}

func TestWrongMethodReturns405(t *testing.T) {
	rec, _ := doJSON(t, http.MethodGet, "/api/webhook-calendly", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET on the webhook route, got %d", rec.Code)
	}
}

func TestAuditLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	actor := "integration@example.com"
	resourceType := "consultation"
	resourceID := uuid.NewString()

	entry := &model.AuditLog{
		ActorEmail:   &actor,
		Action:       "consultation.integration_check",
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		NewValue:     map[string]interface{}{"status": "completed"},
	}
	if err := suite.auditRepo.Create(ctx, entry); err != nil {
		t.Fatalf("create audit log: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("audit insert did not populate the row id")
	}

	action := entry.Action
	logs, err := suite.auditRepo.List(ctx, repository.AuditListFilter{Action: &action})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("audit list returned %d rows, want 1", len(logs))
	}
	if logs[0].NewValue["status"] != "completed" {
		t.Fatalf("audit new_value = %v", logs[0].NewValue)
	}
}
