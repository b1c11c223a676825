package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters for lead and identity flows.
type LeadMetrics struct {
	leadsCreated  *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	leadsDeleted  prometheus.Counter
	authEvents    *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		leadsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadmanager",
			Subsystem: "leads",
			Name:      "created_total",
			Help:      "Total leads created",
		}, []string{"lead_source"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadmanager",
			Subsystem: "leads",
			Name:      "status_changes_total",
			Help:      "Total lead status transitions by target status",
		}, []string{"status"}),
		leadsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadmanager",
			Subsystem: "leads",
			Name:      "deleted_total",
			Help:      "Total leads deleted",
		}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadmanager",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Identity events by type and outcome",
		}, []string{"event", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsCreated, m.statusChanges, m.leadsDeleted, m.authEvents)
	return m
}

func (m *LeadMetrics) ObserveLeadCreated(source string) {
	if m == nil {
		return
	}
	m.leadsCreated.WithLabelValues(source).Inc()
}

func (m *LeadMetrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *LeadMetrics) ObserveLeadDeleted() {
	if m == nil {
		return
	}
	m.leadsDeleted.Inc()
}

// ObserveAuth records an identity event such as login/success or logout/failure.
func (m *LeadMetrics) ObserveAuth(event string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// HTTPMetrics tracks request counts and latency per route pattern.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadmanager",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadmanager",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *HTTPMetrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.latency.WithLabelValues(method, route).Observe(seconds)
}
