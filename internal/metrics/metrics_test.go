package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncProviderRequest("list_groups", "ok")
	m.IncProviderRequest("list_groups", "ok")
	m.IncSettingsWrite("invalid_token")
	m.IncSubscription("created")

	if got := testutil.ToFloat64(m.ProviderRequests.WithLabelValues("list_groups", "ok")); got != 2 {
		t.Errorf("Expected 2 provider requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.SettingsWrites.WithLabelValues("invalid_token")); got != 1 {
		t.Errorf("Expected 1 settings write, got %v", got)
	}
	if got := testutil.ToFloat64(m.Subscriptions.WithLabelValues("created")); got != 1 {
		t.Errorf("Expected 1 subscription, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncProviderRequest("check_api_key", "ok")
	m.IncSettingsWrite("ok")
	m.IncSubscription("failed")
}
