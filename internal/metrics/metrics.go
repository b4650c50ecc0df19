package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec
	SettingsWrites   *prometheus.CounterVec
	Subscriptions    *prometheus.CounterVec
}

// New creates the counters and registers them with reg (if non-nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sendernet_provider_requests_total",
			Help: "Calls made to the sender.net API by operation and result.",
		}, []string{"operation", "result"}),
		SettingsWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sendernet_settings_writes_total",
			Help: "Settings write attempts by result.",
		}, []string{"result"}),
		Subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sendernet_subscriptions_total",
			Help: "Subscription attempts by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.ProviderRequests, m.SettingsWrites, m.Subscriptions)
	}
	return m
}

func (m *Metrics) IncProviderRequest(operation, result string) {
	if m == nil || m.ProviderRequests == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) IncSettingsWrite(result string) {
	if m == nil || m.SettingsWrites == nil {
		return
	}
	m.SettingsWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSubscription(outcome string) {
	if m == nil || m.Subscriptions == nil {
		return
	}
	m.Subscriptions.WithLabelValues(outcome).Inc()
}
