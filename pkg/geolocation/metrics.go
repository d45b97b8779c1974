package geolocation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts plugin traffic. A nil *Metrics records nothing.
type Metrics struct {
	invocations        *prometheus.CounterVec
	responses          *prometheus.CounterVec
	permissionRequests *prometheus.CounterVec
	pendingFlows       prometheus.Gauge
}

// NewMetrics creates the plugin metrics under namespace and registers them
// on reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of actions received from the script layer",
			},
			[]string{"action"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Total number of terminal responses sent to callers",
			},
			[]string{"action", "status"},
		),
		permissionRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "permission_requests_total",
				Help:      "Total number of OS permission flows by outcome",
			},
			[]string{"outcome"},
		),
		pendingFlows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_permission_flows",
				Help:      "Current number of OS permission flows awaiting a result",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.invocations, m.responses, m.permissionRequests, m.pendingFlows)
	}
	return m
}

func (m *Metrics) invoked(action string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(action).Inc()
}

func (m *Metrics) responded(action string, status Status) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(action, status.String()).Inc()
}

func (m *Metrics) permissionFlow(outcome string) {
	if m == nil {
		return
	}
	m.permissionRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pendingFlows.Set(float64(n))
}
