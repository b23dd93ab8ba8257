package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"qualityhair-hub/internal/api/middleware"
	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/service"
)

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

type createConsultationCheckoutRequest struct {
	CustomerName    string   `json:"customerName"`
	CustomerEmail   string   `json:"customerEmail"`
	CustomerPhone   *string  `json:"customerPhone"`
	HairType        *string  `json:"hairType"`
	Concerns        []string `json:"concerns"`
	AdditionalNotes *string  `json:"additionalNotes"`
	SuccessURL      string   `json:"successUrl"`
	CancelURL       string   `json:"cancelUrl"`
}

type createPaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// RegisterCheckoutRoutes mounts the storefront payment endpoints. The paths
// are flat under /api, matching what the deployed frontend calls.
func RegisterCheckoutRoutes(router gin.IRoutes, checkoutService *service.CheckoutService) {
	if checkoutService == nil {
		return
	}

	handler := NewCheckoutHandler(checkoutService)
	router.POST(
		"/api/create-consultation-checkout",
		middleware.RateLimitByJSONField("customerEmail", 10, time.Minute),
		handler.CreateConsultationCheckout,
	)
	router.POST(
		"/api/create-payment-intent",
		middleware.RateLimitByIP(30, time.Minute),
		handler.CreatePaymentIntent,
	)
}

func (h *CheckoutHandler) CreateConsultationCheckout(c *gin.Context) {
	var req createConsultationCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	result, err := h.checkoutService.CreateConsultationCheckout(c.Request.Context(), service.ConsultationCheckoutRequest{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		HairType:        req.HairType,
		Concerns:        req.Concerns,
		AdditionalNotes: req.AdditionalNotes,
		SuccessURL:      req.SuccessURL,
		CancelURL:       req.CancelURL,
	})
	if err != nil {
		handleCheckoutServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"sessionId": result.SessionID,
		"url":       result.URL,
	})
}

func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	var req createPaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	result, err := h.checkoutService.CreatePaymentIntent(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		handleCheckoutServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"clientSecret": result.ClientSecret})
}

func handleCheckoutServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCustomerName),
		errors.Is(err, service.ErrMissingCustomerEmail),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, service.ErrMissingCurrency):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrPaymentProvider, "payment provider error")
	}
}

func parseIntOrDefault(raw string, fallback int) int {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
