package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "health_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the transform.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,error,skipped}
	RunDuration     prometheus.Histogram
	StageDuration   *prometheus.HistogramVec // labels: stage={air_quality,weather,flu,gold}
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Row accounting.
	RawRowsRead     *prometheus.CounterVec // labels: source
	SilverRowsFlag  *prometheus.CounterVec // labels: source, flag
	SilverRowsKept  *prometheus.GaugeVec   // labels: source
	GoldWeeks       *prometheus.GaugeVec   // labels: completeness
	GoldRowsWritten prometheus.Gauge
	FeaturesPublish *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all transform metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.PipelineRunning,
		m.LastSuccess,
		m.RawRowsRead,
		m.SilverRowsFlag,
		m.SilverRowsKept,
		m.GoldWeeks,
		m.GoldRowsWritten,
		m.FeaturesPublish,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Transform runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full raw-to-gold transform run.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each silver cleaner and the gold builder, including table I/O.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a transform run is in progress, 0 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		RawRowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raw_rows_read_total",
			Help:      "Rows read from each raw table.",
		}, []string{"source"}),
		SilverRowsFlag: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "silver_rows_flagged_total",
			Help:      "Raw rows by source and assigned data quality flag.",
		}, []string{"source", "flag"}),
		SilverRowsKept: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "silver_rows",
			Help:      "Rows written to each silver table by the last run.",
		}, []string{"source"}),
		GoldWeeks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gold_anchor_weeks",
			Help:      "Anchor weeks of the last run by completeness classification, before filtering.",
		}, []string{"completeness"}),
		GoldRowsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gold_rows",
			Help:      "Rows written to the gold feature table by the last run.",
		}),
		FeaturesPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_publish_total",
			Help:      "Gold table publications to the features topic by outcome.",
		}, []string{"outcome"}),
	}
}
