package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualityhair_webhook_events_total",
		Help: "Booking webhook deliveries by outcome",
	}, []string{"outcome"})

	CodesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qualityhair_codes_issued_total",
		Help: "Total discount codes issued",
	})

	CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualityhair_checkout_sessions_total",
		Help: "Checkout sessions created by outcome",
	}, []string{"outcome"})

	PaymentIntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualityhair_payment_intents_total",
		Help: "Payment intents created by outcome",
	}, []string{"outcome"})

	EmailFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qualityhair_email_failures_total",
		Help: "Total transactional email send failures",
	})

	CodeIssueDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qualityhair_code_issue_duration_seconds",
		Help:    "Time to confirm a booking and issue its code",
		Buckets: prometheus.DefBuckets,
	})

	PendingConsultations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualityhair_pending_consultations",
		Help: "Paid consultations awaiting a booked date",
	})

	ActiveCodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualityhair_active_codes",
		Help: "Unused discount codes inside their validity window",
	})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualityhair_sse_clients",
		Help: "Current number of SSE clients connected",
	})
)

func IncWebhookEvent(outcome string) {
	label := strings.TrimSpace(outcome)
	if label == "" {
		label = "unknown"
	}
	WebhookEventsTotal.WithLabelValues(label).Inc()
}

func IncCodeIssued() {
	CodesIssuedTotal.Inc()
}

func IncCheckoutSession(outcome string) {
	label := strings.TrimSpace(outcome)
	if label == "" {
		label = "unknown"
	}
	CheckoutSessionsTotal.WithLabelValues(label).Inc()
}

func IncPaymentIntent(outcome string) {
	label := strings.TrimSpace(outcome)
	if label == "" {
		label = "unknown"
	}
	PaymentIntentsTotal.WithLabelValues(label).Inc()
}

func IncEmailFailure() {
	EmailFailuresTotal.Inc()
}

func ObserveCodeIssueDuration(duration time.Duration) {
	CodeIssueDuration.Observe(duration.Seconds())
}

func SetPendingConsultations(count int64) {
	if count < 0 {
		count = 0
	}
	PendingConsultations.Set(float64(count))
}

func SetActiveCodes(count int64) {
	if count < 0 {
		count = 0
	}
	ActiveCodes.Set(float64(count))
}

func SetSSEClients(count int) {
	if count < 0 {
		count = 0
	}
	SSEClients.Set(float64(count))
}
