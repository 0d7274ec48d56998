package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RowsExtracted   prometheus.Counter
	RowsDropped     *prometheus.CounterVec // labels: reason={missing_vin,bad_timestamp}
	CoercionErrors  prometheus.Counter
	SamplesInserted prometheus.Counter
	VehiclesCreated prometheus.Counter
	LoadsTotal      *prometheus.CounterVec // labels: outcome={success,failure}
	LoadDuration    prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "rows_extracted_total",
			Help:      "Total raw rows read from source CSV files.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during cleaning, by reason.",
		}, []string{"reason"}),
		CoercionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "coercion_failures_total",
			Help:      "Numeric fields that failed coercion and became NULL.",
		}),
		SamplesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "samples_inserted_total",
			Help:      "Telemetry samples persisted to the store.",
		}),
		VehiclesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "vehicles_created_total",
			Help:      "New vehicle identities created during loads.",
		}),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "loads_total",
			Help:      "Completed file loads by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vehicle_etl",
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete extract-transform-load run for one file.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "geocode_requests_total",
			Help:      "Reverse-geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_etl",
			Name:      "geocode_cache_total",
			Help:      "Reverse-geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vehicle_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Reverse-geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vehicle_etl",
			Name:      "geocode_enabled",
			Help:      "1 when reverse-geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RowsExtracted,
		m.RowsDropped,
		m.CoercionErrors,
		m.SamplesInserted,
		m.VehiclesCreated,
		m.LoadsTotal,
		m.LoadDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsExtracted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "rows_extracted_total"}),
		RowsDropped:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "rows_dropped_total"}, []string{"reason"}),
		CoercionErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "coercion_failures_total"}),
		SamplesInserted:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "samples_inserted_total"}),
		VehiclesCreated:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "vehicles_created_total"}),
		LoadsTotal:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "loads_total"}, []string{"outcome"}),
		LoadDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "vehicle_etl", Name: "load_duration_seconds"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vehicle_etl", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "vehicle_etl", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "vehicle_etl", Name: "geocode_enabled"}),
	}
}
