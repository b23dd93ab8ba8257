package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qualityhair-hub/internal/api/sanitize"
	"qualityhair-hub/internal/event"
	"qualityhair-hub/internal/metrics"
	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
	"qualityhair-hub/pkg/stripe"
)

const (
	consultationAmountCents = 15000
	consultationCurrency    = "eur"
	consultationProductName = "Hair Consultation"
)

var (
	ErrMissingCustomerName  = errors.New("customer name is required")
	ErrMissingCustomerEmail = errors.New("customer email is required")
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")
	ErrMissingCurrency      = errors.New("currency is required")
)

// PaymentProvider is the slice of the Stripe client the checkout flow needs.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string) (*stripe.PaymentIntent, error)
}

type ConsultationCheckoutRequest struct {
	CustomerName    string   `json:"customerName"`
	CustomerEmail   string   `json:"customerEmail"`
	CustomerPhone   *string  `json:"customerPhone,omitempty"`
	HairType        *string  `json:"hairType,omitempty"`
	Concerns        []string `json:"concerns,omitempty"`
	AdditionalNotes *string  `json:"additionalNotes,omitempty"`
	SuccessURL      string   `json:"successUrl,omitempty"`
	CancelURL       string   `json:"cancelUrl,omitempty"`
}

type ConsultationCheckoutResult struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	SessionID      string    `json:"session_id"`
	URL            string    `json:"url"`
}

type PaymentIntentResult struct {
	ClientSecret string `json:"client_secret"`
}

type CheckoutService struct {
	consultationRepo repository.ConsultationRepository
	auditRepo        repository.AuditRepository
	payments         PaymentProvider
	bus              *event.Bus
	logger           *zap.Logger

	successURL string
	cancelURL  string

	now func() time.Time
}

func NewCheckoutService(
	consultationRepo repository.ConsultationRepository,
	auditRepo repository.AuditRepository,
	payments PaymentProvider,
	bus *event.Bus,
	successURL, cancelURL string,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CheckoutService{
		consultationRepo: consultationRepo,
		auditRepo:        auditRepo,
		payments:         payments,
		bus:              bus,
		logger:           logger,
		successURL:       strings.TrimSpace(successURL),
		cancelURL:        strings.TrimSpace(cancelURL),
		now:              time.Now,
	}
}

// CreateConsultationCheckout records the consultation and opens a payment
// session for it. The row is written first so a webhook arriving right after
// payment always finds its pending consultation.
func (s *CheckoutService) CreateConsultationCheckout(
	ctx context.Context,
	req ConsultationCheckoutRequest,
) (*ConsultationCheckoutResult, error) {
	if s.consultationRepo == nil || s.payments == nil {
		return nil, errors.New("checkout service is not fully wired")
	}

	name := sanitize.Text(req.CustomerName)
	if name == "" {
		return nil, ErrMissingCustomerName
	}
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrMissingCustomerEmail
	}

	now := s.now().UTC()
	consultation := &model.Consultation{
		ID:            uuid.New(),
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: sanitize.TextPtr(req.CustomerPhone),
		HairType:      sanitize.TextPtr(req.HairType),
		Concerns:      joinConcerns(req.Concerns),
		Notes:         sanitize.NotesPtr(req.AdditionalNotes),
		Status:        model.ConsultationStatusPaid,
		AmountCents:   consultationAmountCents,
		Currency:      consultationCurrency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.consultationRepo.Create(ctx, consultation); err != nil {
		metrics.IncCheckoutSession("error")
		return nil, err
	}

	successURL := firstNonEmpty(strings.TrimSpace(req.SuccessURL), s.successURL)
	cancelURL := firstNonEmpty(strings.TrimSpace(req.CancelURL), s.cancelURL)

	session, err := s.payments.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		CustomerEmail: email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		LineItems: []stripe.LineItem{{
			Name:        consultationProductName,
			AmountCents: consultationAmountCents,
			Currency:    consultationCurrency,
			Quantity:    1,
		}},
		Metadata: map[string]string{
			"consultation_id": consultation.ID.String(),
		},
	})
	if err != nil {
		metrics.IncCheckoutSession("provider_error")
		return nil, err
	}

	sessionID := session.ID
	// The session already exists at Stripe; a failed column update must not
	// lose the checkout URL, so it is logged and the flow continues.
	if err := s.consultationRepo.SetStripeSession(ctx, consultation.ID, sessionID); err != nil {
		s.logger.Warn("recording stripe session id failed",
			zap.String("consultation_id", consultation.ID.String()),
			zap.Error(err),
		)
	}
	metrics.IncCheckoutSession("created")

	if s.bus != nil {
		s.bus.Publish(event.EventCheckoutCreated, event.CheckoutCreatedPayload{
			ConsultationID: consultation.ID.String(),
			CustomerEmail:  email,
			SessionID:      sessionID,
		})
	}

	if s.auditRepo != nil {
		resourceID := consultation.ID.String()
		_ = s.auditRepo.Create(ctx, &model.AuditLog{
			ActorEmail:   &email,
			Action:       "consultation.checkout_created",
			ResourceType: strPtr("consultation"),
			ResourceID:   &resourceID,
			NewValue: map[string]interface{}{
				"session_id":   sessionID,
				"amount_cents": consultationAmountCents,
			},
			CreatedAt: now,
		})
	}

	return &ConsultationCheckoutResult{
		ConsultationID: consultation.ID,
		SessionID:      session.ID,
		URL:            session.URL,
	}, nil
}

func (s *CheckoutService) CreatePaymentIntent(
	ctx context.Context,
	amountCents int64,
	currency string,
) (*PaymentIntentResult, error) {
	if s.payments == nil {
		return nil, errors.New("checkout service is not fully wired")
	}
	if amountCents <= 0 {
		return nil, ErrInvalidPaymentAmount
	}
	if strings.TrimSpace(currency) == "" {
		return nil, ErrMissingCurrency
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, amountCents, currency)
	if err != nil {
		metrics.IncPaymentIntent("provider_error")
		return nil, err
	}

	metrics.IncPaymentIntent("created")
	return &PaymentIntentResult{ClientSecret: intent.ClientSecret}, nil
}

func joinConcerns(concerns []string) *string {
	cleaned := sanitize.StringSlice(concerns)
	if len(cleaned) == 0 {
		return nil
	}
	joined := strings.Join(cleaned, ", ")
	return &joined
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
