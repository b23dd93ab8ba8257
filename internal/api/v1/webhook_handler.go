package v1

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qualityhair-hub/internal/api/middleware"
	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/service"
)

const calendlySignatureHeader = "Calendly-Webhook-Signature"

type WebhookHandler struct {
	bookingService *service.BookingService
	signingKey     string
	logger         *zap.Logger
}

type calendlyWebhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Invitee *struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"invitee"`
		ScheduledEvent *struct {
			StartTime time.Time `json:"start_time"`
			Name      string    `json:"name"`
			Location  *struct {
				Type     string `json:"type"`
				Location string `json:"location"`
			} `json:"location"`
		} `json:"scheduled_event"`
	} `json:"payload"`
}

func NewWebhookHandler(bookingService *service.BookingService, signingKey string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		bookingService: bookingService,
		signingKey:     strings.TrimSpace(signingKey),
		logger:         logger,
	}
}

func RegisterWebhookRoutes(router gin.IRoutes, bookingService *service.BookingService, signingKey string, logger *zap.Logger) {
	if bookingService == nil {
		return
	}

	handler := NewWebhookHandler(bookingService, signingKey, logger)
	router.POST(
		"/api/webhook-calendly",
		middleware.RateLimitByIP(120, time.Minute),
		handler.HandleCalendly,
	)
}

func (h *WebhookHandler) HandleCalendly(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "unreadable body")
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	if h.signingKey != "" {
		if !h.verifySignature(c.GetHeader(calendlySignatureHeader), raw) {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "invalid signature")
			return
		}
	}

	var body calendlyWebhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid json payload")
		return
	}

	evt := service.BookingEvent{Type: strings.TrimSpace(body.Event)}
	if evt.Type == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "missing event type")
		return
	}

	// Only validated for the handled event type; other types are
	// acknowledged untouched.
	if evt.Type == "invitee.created" {
		if body.Payload.Invitee == nil || body.Payload.ScheduledEvent == nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "missing invitee or scheduled_event")
			return
		}
		evt.InviteeEmail = body.Payload.Invitee.Email
		evt.InviteeName = body.Payload.Invitee.Name
		evt.StartTime = body.Payload.ScheduledEvent.StartTime
		evt.EventName = body.Payload.ScheduledEvent.Name
		if body.Payload.ScheduledEvent.Location != nil {
			evt.Location = body.Payload.ScheduledEvent.Location.Location
		}
	}

	outcome, err := h.bookingService.HandleBookingConfirmed(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, service.ErrMalformedBookingPayload) {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "malformed booking payload")
			return
		}
		h.logger.Error("booking webhook processing failed", zap.Error(err))
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	response.Success(c, outcome)
}

// verifySignature checks the t=..,v1=.. header format: v1 is the hex HMAC
// SHA-256 of "<t>.<body>" under the signing key.
func (h *WebhookHandler) verifySignature(header string, body []byte) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}

	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.signingKey))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
