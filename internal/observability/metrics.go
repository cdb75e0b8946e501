package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "incident_reporting"

// Metrics - счетчики Prometheus сервиса
type Metrics struct {
	ReportsRecorded *prometheus.CounterVec // метки: type
	LocationPings   prometheus.Counter
	ThreatChecks    *prometheus.CounterVec // метки: outcome={threat,clear,error}
	ValidationFails *prometheus.CounterVec // метки: operation
	WebhookDelivery *prometheus.CounterVec // метки: outcome={delivered,failed,skipped}
}

// NewMetrics создает метрики и регистрирует их в стандартном реестре
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsRecorded,
		m.LocationPings,
		m.ThreatChecks,
		m.ValidationFails,
		m.WebhookDelivery,
	)
	return m
}

// NewMetricsForTesting создает метрики без регистрации
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_recorded_total",
			Help:      "Reports persisted by the ingestion service, by incident type.",
		}, []string{"type"}),
		LocationPings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_pings_total",
			Help:      "Location upserts accepted.",
		}),
		ThreatChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threat_checks_total",
			Help:      "Predictive threat checks by outcome.",
		}, []string{"outcome"}),
		ValidationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Requests rejected by service-level validation.",
		}, []string{"operation"}),
		WebhookDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Report webhook deliveries by outcome.",
		}, []string{"outcome"}),
	}
}
