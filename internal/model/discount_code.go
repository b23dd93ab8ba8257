package model

import (
	"time"

	"github.com/google/uuid"
)

type DiscountCode struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	ConsultationID uuid.UUID `db:"consultation_id" json:"consultation_id"`
	AmountCents    int64     `db:"amount_cents" json:"amount_cents"`
	Currency       string    `db:"currency" json:"currency"`
	ActivationDate time.Time `db:"activation_date" json:"activation_date"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
	Used           bool      `db:"used" json:"used"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// IsActive reports whether the code can be redeemed at the given instant.
func (d *DiscountCode) IsActive(now time.Time) bool {
	if d == nil || d.Used {
		return false
	}
	return !now.Before(d.ActivationDate) && now.Before(d.ExpiresAt)
}
