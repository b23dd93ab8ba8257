package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"qualityhair-hub/internal/mailer"
	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

type fakeConsultationRepo struct {
	byID map[uuid.UUID]*model.Consultation

	createErr  error
	confirmErr error
	appendErr  error
	sessionErr error
}

func newFakeConsultationRepo() *fakeConsultationRepo {
	return &fakeConsultationRepo{byID: make(map[uuid.UUID]*model.Consultation)}
}

func (f *fakeConsultationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConsultationRepo) FindLatestPendingByEmail(_ context.Context, email string) (*model.Consultation, error) {
	var latest *model.Consultation
	for _, c := range f.byID {
		if !c.IsPending() || c.CustomerEmail != email {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeConsultationRepo) FindPendingOlderThan(_ context.Context, cutoff time.Time) ([]*model.Consultation, error) {
	var out []*model.Consultation
	for _, c := range f.byID {
		if c.IsPending() && c.CreatedAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeConsultationRepo) Create(_ context.Context, consultation *model.Consultation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.byID[consultation.ID] = consultation
	return nil
}

func (f *fakeConsultationRepo) ConfirmBooking(_ context.Context, id uuid.UUID, consultationDate time.Time, noteLine string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	date := consultationDate
	c.ConsultationDate = &date
	c.Status = model.ConsultationStatusCompleted
	appendNote(c, noteLine)
	return nil
}

func (f *fakeConsultationRepo) AppendNote(_ context.Context, id uuid.UUID, noteLine string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	appendNote(c, noteLine)
	return nil
}

func (f *fakeConsultationRepo) SetStripeSession(_ context.Context, id uuid.UUID, sessionID string) error {
	if f.sessionErr != nil {
		return f.sessionErr
	}
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.StripeSessionID = &sessionID
	return nil
}

func (f *fakeConsultationRepo) List(_ context.Context, _ repository.ConsultationListFilter) ([]*model.Consultation, error) {
	out := make([]*model.Consultation, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeConsultationRepo) Count(_ context.Context, _ repository.ConsultationListFilter) (int64, error) {
	return int64(len(f.byID)), nil
}

func (f *fakeConsultationRepo) CountPending(_ context.Context) (int64, error) {
	var n int64
	for _, c := range f.byID {
		if c.IsPending() {
			n++
		}
	}
	return n, nil
}

func appendNote(c *model.Consultation, noteLine string) {
	if c.Notes == nil || *c.Notes == "" {
		note := noteLine
		c.Notes = &note
		return
	}
	note := *c.Notes + "\n" + noteLine
	c.Notes = &note
}

type fakeCodeRepo struct {
	byCode         map[string]*model.DiscountCode
	byConsultation map[uuid.UUID]*model.DiscountCode

	existsAlways bool
	createCalls  int

	// onCreate runs before the insert and can veto it.
	onCreate func(code *model.DiscountCode) error
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{
		byCode:         make(map[string]*model.DiscountCode),
		byConsultation: make(map[uuid.UUID]*model.DiscountCode),
	}
}

func (f *fakeCodeRepo) seed(code *model.DiscountCode) {
	f.byCode[code.Code] = code
	f.byConsultation[code.ConsultationID] = code
}

func (f *fakeCodeRepo) FindByCode(_ context.Context, code string) (*model.DiscountCode, error) {
	if c, ok := f.byCode[code]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCodeRepo) FindByConsultationID(_ context.Context, consultationID uuid.UUID) (*model.DiscountCode, error) {
	if c, ok := f.byConsultation[consultationID]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCodeRepo) Create(_ context.Context, code *model.DiscountCode) error {
	f.createCalls++
	if f.onCreate != nil {
		if err := f.onCreate(code); err != nil {
			return err
		}
	}
	if _, ok := f.byCode[code.Code]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := f.byConsultation[code.ConsultationID]; ok {
		return repository.ErrDuplicate
	}
	f.seed(code)
	return nil
}

func (f *fakeCodeRepo) CodeExists(_ context.Context, code string) (bool, error) {
	if f.existsAlways {
		return true, nil
	}
	_, ok := f.byCode[code]
	return ok, nil
}

func (f *fakeCodeRepo) List(_ context.Context, _ repository.DiscountCodeListFilter) ([]*model.DiscountCode, error) {
	out := make([]*model.DiscountCode, 0, len(f.byCode))
	for _, c := range f.byCode {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCodeRepo) CountActive(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, c := range f.byCode {
		if c.IsActive(now) {
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	logs []*model.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _ repository.AuditListFilter) ([]*model.AuditLog, error) {
	return f.logs, nil
}

func (f *fakeAuditRepo) hasAction(action string) bool {
	for _, log := range f.logs {
		if log.Action == action {
			return true
		}
	}
	return false
}

type fakeSender struct {
	discountEmails []mailer.DiscountCodeEmail
	reminderEmails []mailer.BookingReminderEmail

	sendErr error
}

func (f *fakeSender) SendDiscountCode(_ context.Context, email mailer.DiscountCodeEmail) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.discountEmails = append(f.discountEmails, email)
	return nil
}

func (f *fakeSender) SendBookingReminder(_ context.Context, email mailer.BookingReminderEmail) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.reminderEmails = append(f.reminderEmails, email)
	return nil
}

func seedPendingConsultation(repo *fakeConsultationRepo, email string, createdAt time.Time) *model.Consultation {
	consultation := &model.Consultation{
		ID:            uuid.New(),
		CustomerName:  "Test Customer",
		CustomerEmail: strings.TrimSpace(email),
		Status:        model.ConsultationStatusPaid,
		AmountCents:   15000,
		Currency:      "eur",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	repo.byID[consultation.ID] = consultation
	return consultation
}
