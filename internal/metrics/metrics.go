// Package metrics exposes Prometheus metrics for authentication attempts,
// alerts and device lock state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aiguardian/guardian/internal/models"
)

// Metrics implements service.Metrics on a dedicated Prometheus registry.
type Metrics struct {
	registry   *prometheus.Registry
	auths      *prometheus.CounterVec
	confidence prometheus.Histogram
	alerts     *prometheus.CounterVec
	locked     prometheus.Gauge
	devices    prometheus.Gauge
}

// New registers the guardian metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		auths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guardian",
			Name:      "auth_attempts_total",
			Help:      "Completed biometric authentication attempts by result.",
		}, []string{"result"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "guardian",
			Name:      "auth_match_confidence",
			Help:      "Match confidence of completed authentication attempts.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guardian",
			Name:      "alerts_total",
			Help:      "Alerts appended to the alert log by kind.",
		}, []string{"kind"}),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guardian",
			Name:      "devices_locked",
			Help:      "Number of locked devices.",
		}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guardian",
			Name:      "devices_total",
			Help:      "Number of registered devices.",
		}),
	}
	m.registry.MustRegister(m.auths, m.confidence, m.alerts, m.locked, m.devices)
	return m
}

// ObserveAuth counts a finished authentication attempt.
func (m *Metrics) ObserveAuth(result models.AuthResult, confidence int) {
	m.auths.WithLabelValues(string(result)).Inc()
	m.confidence.Observe(float64(confidence))
}

// ObserveAlert counts an appended alert.
func (m *Metrics) ObserveAlert(kind models.AlertKind) {
	m.alerts.WithLabelValues(string(kind)).Inc()
}

// SetLockedDevices updates the device gauges.
func (m *Metrics) SetLockedDevices(locked, total int) {
	m.locked.Set(float64(locked))
	m.devices.Set(float64(total))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
