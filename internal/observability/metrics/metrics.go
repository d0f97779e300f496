package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesCreated  *prometheus.CounterVec
	paymentsRecorded *prometheus.CounterVec
	overdueSwept     prometheus.Counter
	rateLimitAllowed *prometheus.CounterVec
	rateLimitDenied  *prometheus.CounterVec
}

// New configures the domain metrics instruments.
func New(cfg Config) (*Metrics, error) {
	namespace := sanitizeNamespace(cfg.ServiceName)

	invoicesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_created_total",
		Help:      "Count of invoices created by status.",
	}, []string{"status"})

	paymentsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_recorded_total",
		Help:      "Count of payments recorded by method.",
	}, []string{"method"})

	overdueSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_overdue_swept_total",
		Help:      "Count of invoices transitioned to OVERDUE by the sweeper.",
	})

	rateLimitAllowed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_allowed_total",
		Help:      "Count of requests allowed by the rate limiter.",
	}, []string{"endpoint"})

	rateLimitDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_denied_total",
		Help:      "Count of requests denied by the rate limiter.",
	}, []string{"endpoint", "reason"})

	collectors := []prometheus.Collector{
		invoicesCreated,
		paymentsRecorded,
		overdueSwept,
		rateLimitAllowed,
		rateLimitDenied,
	}
	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return &Metrics{
		invoicesCreated:  invoicesCreated,
		paymentsRecorded: paymentsRecorded,
		overdueSwept:     overdueSwept,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordInvoiceCreated increments invoice creation counts.
func (m *Metrics) RecordInvoiceCreated(status string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(status).Inc()
}

// RecordPayment increments payment counts.
func (m *Metrics) RecordPayment(method string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(method).Inc()
}

// RecordOverdueSwept adds swept invoice counts.
func (m *Metrics) RecordOverdueSwept(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.overdueSwept.Add(float64(count))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitAllowed.WithLabelValues(endpoint).Inc()
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(endpoint, reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(endpoint, reason).Inc()
}
