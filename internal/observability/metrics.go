package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// SoilGrids provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: property, outcome={success,empty,error}
	ProviderCache    *prometheus.CounterVec   // labels: result={hit,miss}
	ProviderDuration *prometheus.HistogramVec // labels: property

	// Resolution metrics.
	Resolutions        *prometheus.CounterVec // labels: property, source={primary,nearby,default}
	ResolutionAttempts prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_data",
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_data",
			Name:      "messages_produced_total",
			Help:      "Total messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_data",
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "soil_data",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soil_data",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soil_data",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_data",
			Name:      "provider_requests_total",
			Help:      "SoilGrids API requests by property and outcome.",
		}, []string{"property", "outcome"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_data",
			Name:      "provider_cache_total",
			Help:      "Observation cache lookups by result.",
		}, []string{"result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "soil_data",
			Name:      "provider_request_duration_seconds",
			Help:      "SoilGrids API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"property"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_data",
			Name:      "resolutions_total",
			Help:      "Property resolutions by property and source.",
		}, []string{"property", "source"}),
		ResolutionAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soil_data",
			Name:      "resolution_attempts",
			Help:      "Lookups performed per property resolution.",
			Buckets:   []float64{1, 2, 3, 5, 9, 13, 17},
		}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ProviderRequests,
		m.ProviderCache,
		m.ProviderDuration,
		m.Resolutions,
		m.ResolutionAttempts,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "soil_data", Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "soil_data", Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "soil_data", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "soil_data", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "soil_data", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "soil_data", Name: "batch_processing_duration_seconds"}),
		ProviderRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "soil_data", Name: "provider_requests_total"}, []string{"property", "outcome"}),
		ProviderCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "soil_data", Name: "provider_cache_total"}, []string{"result"}),
		ProviderDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "soil_data", Name: "provider_request_duration_seconds"}, []string{"property"}),
		Resolutions:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "soil_data", Name: "resolutions_total"}, []string{"property", "source"}),
		ResolutionAttempts:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "soil_data", Name: "resolution_attempts"}),
	}
}
