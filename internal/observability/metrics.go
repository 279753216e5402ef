package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors exported at /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrorsTotal     *prometheus.CounterVec

	AuthAttemptsTotal *prometheus.CounterVec
	OTPIssuedTotal    *prometheus.CounterVec
	OTPVerifyTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "civicdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicdesk_http_errors_total",
				Help: "Total number of error responses by error code",
			},
			[]string{"method", "route", "code"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicdesk_auth_attempts_total",
				Help: "Authentication attempts by role, method and outcome",
			},
			[]string{"role", "method", "outcome"},
		),
		OTPIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicdesk_otp_issued_total",
				Help: "One-time codes issued by channel and purpose",
			},
			[]string{"channel", "purpose"},
		),
		OTPVerifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicdesk_otp_verifications_total",
				Help: "One-time code verifications by purpose and verdict",
			},
			[]string{"purpose", "verdict"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPErrorsTotal,
		m.AuthAttemptsTotal,
		m.OTPIssuedTotal,
		m.OTPVerifyTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordAuthAttempt counts a login, signup or refresh outcome.
func (m *Metrics) RecordAuthAttempt(role, method, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(role, method, outcome).Inc()
}

// RecordOTPIssued counts a delivered code.
func (m *Metrics) RecordOTPIssued(channel, purpose string) {
	if m == nil {
		return
	}
	m.OTPIssuedTotal.WithLabelValues(channel, purpose).Inc()
}

// RecordOTPVerification counts a verification verdict.
func (m *Metrics) RecordOTPVerification(purpose, verdict string) {
	if m == nil {
		return
	}
	m.OTPVerifyTotal.WithLabelValues(purpose, verdict).Inc()
}
