package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusPaid      ConsultationStatus = "paid"
	ConsultationStatusCompleted ConsultationStatus = "completed"
)

type Consultation struct {
	ID               uuid.UUID          `db:"id" json:"id"`
	CustomerName     string             `db:"customer_name" json:"customer_name"`
	CustomerEmail    string             `db:"customer_email" json:"customer_email"`
	CustomerPhone    *string            `db:"customer_phone" json:"customer_phone,omitempty"`
	HairType         *string            `db:"hair_type" json:"hair_type,omitempty"`
	Concerns         *string            `db:"concerns" json:"concerns,omitempty"`
	Notes            *string            `db:"notes" json:"notes,omitempty"`
	Status           ConsultationStatus `db:"status" json:"status"`
	ConsultationDate *time.Time         `db:"consultation_date" json:"consultation_date,omitempty"`
	StripeSessionID  *string            `db:"stripe_session_id" json:"stripe_session_id,omitempty"`
	AmountCents      int64              `db:"amount_cents" json:"amount_cents"`
	Currency         string             `db:"currency" json:"currency"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// IsPending reports whether the consultation is paid but not yet scheduled.
func (c *Consultation) IsPending() bool {
	return c != nil && c.Status == ConsultationStatusPaid && c.ConsultationDate == nil
}
