// Package stripe is a minimal client for the two Stripe endpoints the
// storefront needs: Checkout Sessions and Payment Intents. Requests are
// form-encoded per the Stripe API; no retries are attempted, failures
// propagate to the caller.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIBase = "https://api.stripe.com/v1"

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type LineItem struct {
	Name        string
	AmountCents int64
	Currency    string
	Quantity    int
}

type CheckoutSessionParams struct {
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	LineItems     []LineItem
	Metadata      map[string]string
}

type apiError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

func NewClient(secretKey string, httpClient *http.Client) *Client {
	client := httpClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		secretKey:  strings.TrimSpace(secretKey),
		baseURL:    stripeAPIBase,
		httpClient: client,
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if c == nil {
		return nil, errors.New("stripe client is nil")
	}
	if strings.TrimSpace(params.CustomerEmail) == "" {
		return nil, errors.New("customer email is required")
	}
	if len(params.LineItems) == 0 {
		return nil, errors.New("at least one line item is required")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer_email", params.CustomerEmail)
	if params.SuccessURL != "" {
		form.Set("success_url", params.SuccessURL)
	}
	if params.CancelURL != "" {
		form.Set("cancel_url", params.CancelURL)
	}
	for i, item := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", strings.ToLower(item.Currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.AmountCents, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		form.Set(prefix+"[quantity]", strconv.Itoa(quantity))
	}
	for key, value := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	session := &CheckoutSession{}
	if err := c.post(ctx, "/checkout/sessions", form, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string) (*PaymentIntent, error) {
	if c == nil {
		return nil, errors.New("stripe client is nil")
	}
	if amountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if strings.TrimSpace(currency) == "" {
		return nil, errors.New("currency is required")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", strings.ToLower(strings.TrimSpace(currency)))
	form.Set("automatic_payment_methods[enabled]", "true")

	intent := &PaymentIntent{}
	if err := c.post(ctx, "/payment_intents", form, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	if strings.TrimSpace(c.secretKey) == "" {
		return errors.New("stripe secret key is empty")
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope errorEnvelope
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil && envelope.Error != nil {
			return fmt.Errorf("stripe api error: %s", envelope.Error.Message)
		}
		return fmt.Errorf("stripe api error: status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
