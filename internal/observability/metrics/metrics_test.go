package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLeadMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveLeadCreated("website")
	m.ObserveLeadCreated("website")
	m.ObserveStatusChange("deal_done")
	m.ObserveLeadDeleted()
	m.ObserveAuth("login", false)

	if got := counterValue(t, reg, "leadmanager_leads_created_total", "lead_source", "website"); got != 2 {
		t.Fatalf("expected 2 created leads, got %v", got)
	}
	if got := counterValue(t, reg, "leadmanager_auth_events_total", "outcome", "failure"); got != 1 {
		t.Fatalf("expected 1 failed auth event, got %v", got)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("GET", "/leads", "200", 0.01)

	if got := counterValue(t, reg, "leadmanager_http_requests_total", "route", "/leads"); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveLeadCreated("website")
	m.ObserveStatusChange("new_lead")
	m.ObserveLeadDeleted()
	m.ObserveAuth("login", true)

	var h *HTTPMetrics
	h.ObserveRequest("GET", "/", "200", 0.1)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == name {
			family = f
			break
		}
	}
	if family == nil {
		t.Fatalf("metric %s not found", name)
	}
	var total float64
	for _, metric := range family.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}
