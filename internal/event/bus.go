package event

import (
	"strings"
	"sync"
	"time"
)

const (
	EventCheckoutCreated       = "checkout.created"
	EventConsultationConfirmed = "consultation.confirmed"
	EventCodeIssued            = "code.issued"
)

type CheckoutCreatedPayload struct {
	ConsultationID string `json:"consultation_id"`
	CustomerEmail  string `json:"customer_email"`
	SessionID      string `json:"session_id"`
}

type ConsultationConfirmedPayload struct {
	ConsultationID   string    `json:"consultation_id"`
	CustomerEmail    string    `json:"customer_email"`
	ConsultationDate time.Time `json:"consultation_date"`
}

type CodeIssuedPayload struct {
	ConsultationID string    `json:"consultation_id"`
	Code           string    `json:"code"`
	ExpiresAt      time.Time `json:"expires_at"`
	Reused         bool      `json:"reused"`
}

type Bus struct {
	handlers sync.Map
	mu       sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(event string, handler func(payload any)) {
	if b == nil || handler == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := make([]func(payload any), 0, 1)
	if current, ok := b.handlers.Load(eventName); ok {
		if casted, valid := current.([]func(payload any)); valid {
			handlers = append(handlers, casted...)
		}
	}
	handlers = append(handlers, handler)
	b.handlers.Store(eventName, handlers)
}

func (b *Bus) Publish(event string, payload any) {
	if b == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	current, ok := b.handlers.Load(eventName)
	if !ok {
		return
	}

	handlers, ok := current.([]func(payload any))
	if !ok || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		go handler(payload)
	}
}
