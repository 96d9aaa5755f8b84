package daemon

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters and histograms for deckhandd.
type Metrics struct {
	registry                *prometheus.Registry
	productStartsTotal      *prometheus.CounterVec
	productStopsTotal       *prometheus.CounterVec
	productStartSeconds     prometheus.Histogram
	licenseValidationsTotal *prometheus.CounterVec
	fleetPollsTotal         *prometheus.CounterVec
	updateChecksTotal       *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	productStartsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckhand",
			Subsystem: "product",
			Name:      "starts_total",
			Help:      "Total product start attempts by outcome.",
		},
		[]string{"outcome"},
	)
	productStopsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckhand",
			Subsystem: "product",
			Name:      "stops_total",
			Help:      "Total product stop attempts by outcome.",
		},
		[]string{"outcome"},
	)
	productStartSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "deckhand",
			Subsystem: "product",
			Name:      "start_duration_seconds",
			Help:      "Time to bring a product's container pair to running.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)
	licenseValidationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckhand",
			Subsystem: "license",
			Name:      "validations_total",
			Help:      "Total license validations by outcome.",
		},
		[]string{"outcome"},
	)
	fleetPollsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckhand",
			Subsystem: "fleet",
			Name:      "polls_total",
			Help:      "Total fleet monitor requests by outcome.",
		},
		[]string{"outcome"},
	)
	updateChecksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckhand",
			Subsystem: "update",
			Name:      "checks_total",
			Help:      "Total update feed checks by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		productStartsTotal,
		productStopsTotal,
		productStartSeconds,
		licenseValidationsTotal,
		fleetPollsTotal,
		updateChecksTotal,
	)

	return &Metrics{
		registry:                registry,
		productStartsTotal:      productStartsTotal,
		productStopsTotal:       productStopsTotal,
		productStartSeconds:     productStartSeconds,
		licenseValidationsTotal: licenseValidationsTotal,
		fleetPollsTotal:         fleetPollsTotal,
		updateChecksTotal:       updateChecksTotal,
	}
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncProductStart(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.productStartsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncProductStop(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.productStopsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProductStart(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		return
	}
	m.productStartSeconds.Observe(seconds)
}

func (m *Metrics) IncLicenseValidation(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.licenseValidationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFleetPoll(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.fleetPollsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncUpdateCheck(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.updateChecksTotal.WithLabelValues(outcome).Inc()
}
