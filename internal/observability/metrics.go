package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "wind_etl"

// Metrics holds the Prometheus counters and histograms for one CLI run.
type Metrics struct {
	registry *prometheus.Registry

	StationsLoaded *prometheus.CounterVec // labels: source={smn,icao,registry}
	StationsJoined prometheus.Counter
	StationsValid  prometheus.Gauge
	RowsExported   *prometheus.CounterVec // labels: artifact
	StepDuration   *prometheus.HistogramVec

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,not_found,error}
	GeocodeResolved    *prometheus.CounterVec // labels: source
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates all run metrics on a fresh registry, so repeated
// construction in tests never collides.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StationsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_loaded_total",
			Help:      "Rows loaded per source table.",
		}, []string{"source"}),
		StationsJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_joined_total",
			Help:      "Wind readings written by the join step.",
		}),
		StationsValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_valid",
			Help:      "Stations with coordinates and a mean wind speed after geocoding.",
		}),
		RowsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_exported_total",
			Help:      "Rows written per artifact.",
		}, []string{"artifact"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of each CLI step.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"step"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "ICAO geocoding API attempts by outcome.",
		}, []string{"outcome"}),
		GeocodeResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_resolved_total",
			Help:      "Stations by the source that provided their coordinates.",
		}, []string{"source"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Resolution cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "ICAO geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StationsLoaded,
		m.StationsJoined,
		m.StationsValid,
		m.RowsExported,
		m.StepDuration,
		m.GeocodeRequests,
		m.GeocodeResolved,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// Registry exposes the run registry for HTTP exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the run metrics to a Prometheus Pushgateway under the given job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
