package v1

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memConsultationRepo struct {
	byID map[uuid.UUID]*model.Consultation
}

func newMemConsultationRepo() *memConsultationRepo {
	return &memConsultationRepo{byID: make(map[uuid.UUID]*model.Consultation)}
}

func (m *memConsultationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memConsultationRepo) FindLatestPendingByEmail(_ context.Context, email string) (*model.Consultation, error) {
	var latest *model.Consultation
	for _, c := range m.byID {
		if c.IsPending() && c.CustomerEmail == email {
			if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (m *memConsultationRepo) FindPendingOlderThan(_ context.Context, cutoff time.Time) ([]*model.Consultation, error) {
	var out []*model.Consultation
	for _, c := range m.byID {
		if c.IsPending() && c.CreatedAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memConsultationRepo) Create(_ context.Context, consultation *model.Consultation) error {
	m.byID[consultation.ID] = consultation
	return nil
}

func (m *memConsultationRepo) ConfirmBooking(_ context.Context, id uuid.UUID, consultationDate time.Time, noteLine string) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	date := consultationDate
	c.ConsultationDate = &date
	c.Status = model.ConsultationStatusCompleted
	if c.Notes == nil {
		c.Notes = &noteLine
	} else {
		joined := *c.Notes + "\n" + noteLine
		c.Notes = &joined
	}
	return nil
}

func (m *memConsultationRepo) AppendNote(_ context.Context, id uuid.UUID, noteLine string) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.Notes == nil {
		c.Notes = &noteLine
	} else {
		joined := *c.Notes + "\n" + noteLine
		c.Notes = &joined
	}
	return nil
}

func (m *memConsultationRepo) SetStripeSession(_ context.Context, id uuid.UUID, sessionID string) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.StripeSessionID = &sessionID
	return nil
}

func (m *memConsultationRepo) List(_ context.Context, _ repository.ConsultationListFilter) ([]*model.Consultation, error) {
	out := make([]*model.Consultation, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

func (m *memConsultationRepo) Count(_ context.Context, _ repository.ConsultationListFilter) (int64, error) {
	return int64(len(m.byID)), nil
}

func (m *memConsultationRepo) CountPending(_ context.Context) (int64, error) {
	var n int64
	for _, c := range m.byID {
		if c.IsPending() {
			n++
		}
	}
	return n, nil
}

type memCodeRepo struct {
	byCode         map[string]*model.DiscountCode
	byConsultation map[uuid.UUID]*model.DiscountCode
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{
		byCode:         make(map[string]*model.DiscountCode),
		byConsultation: make(map[uuid.UUID]*model.DiscountCode),
	}
}

func (m *memCodeRepo) FindByCode(_ context.Context, code string) (*model.DiscountCode, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memCodeRepo) FindByConsultationID(_ context.Context, consultationID uuid.UUID) (*model.DiscountCode, error) {
	if c, ok := m.byConsultation[consultationID]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memCodeRepo) Create(_ context.Context, code *model.DiscountCode) error {
	if _, ok := m.byCode[code.Code]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := m.byConsultation[code.ConsultationID]; ok {
		return repository.ErrDuplicate
	}
	m.byCode[code.Code] = code
	m.byConsultation[code.ConsultationID] = code
	return nil
}

func (m *memCodeRepo) CodeExists(_ context.Context, code string) (bool, error) {
	_, ok := m.byCode[code]
	return ok, nil
}

func (m *memCodeRepo) List(_ context.Context, _ repository.DiscountCodeListFilter) ([]*model.DiscountCode, error) {
	out := make([]*model.DiscountCode, 0, len(m.byCode))
	for _, c := range m.byCode {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCodeRepo) CountActive(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, c := range m.byCode {
		if c.IsActive(now) {
			n++
		}
	}
	return n, nil
}

func performJSON(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var envelope response.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response envelope: %v (body %q)", err, recorder.Body.String())
	}
	return envelope
}

func requireStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()

	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d (body %q)", want, recorder.Code, recorder.Body.String())
	}
}
