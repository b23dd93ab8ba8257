package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"qualityhair-hub/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type ConsultationListFilter struct {
	Status     *model.ConsultationStatus `json:"status,omitempty"`
	Email      *string                   `json:"email,omitempty"`
	Pagination Pagination                `json:"pagination"`
}

type DiscountCodeListFilter struct {
	Used       *bool      `json:"used,omitempty"`
	ActiveAt   *time.Time `json:"active_at,omitempty"`
	Pagination Pagination `json:"pagination"`
}

type AuditListFilter struct {
	Action       *string    `json:"action,omitempty"`
	ResourceType *string    `json:"resource_type,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Pagination   Pagination `json:"pagination"`
}

type ConsultationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	// FindLatestPendingByEmail returns the most recently created consultation
	// with status "paid" and no consultation date for the exact email.
	FindLatestPendingByEmail(ctx context.Context, email string) (*model.Consultation, error)
	FindPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*model.Consultation, error)
	Create(ctx context.Context, consultation *model.Consultation) error
	// ConfirmBooking stamps the consultation date, moves the status to
	// "completed" and appends a note line without overwriting prior notes.
	ConfirmBooking(ctx context.Context, id uuid.UUID, consultationDate time.Time, noteLine string) error
	AppendNote(ctx context.Context, id uuid.UUID, noteLine string) error
	SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error
	List(ctx context.Context, filter ConsultationListFilter) ([]*model.Consultation, error)
	Count(ctx context.Context, filter ConsultationListFilter) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type DiscountCodeRepository interface {
	FindByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	FindByConsultationID(ctx context.Context, consultationID uuid.UUID) (*model.DiscountCode, error)
	// Create inserts the code and maps unique-constraint violations
	// (duplicate code or duplicate consultation_id) to ErrDuplicate.
	Create(ctx context.Context, code *model.DiscountCode) error
	CodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter DiscountCodeListFilter) ([]*model.DiscountCode, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]*model.AuditLog, error)
}
