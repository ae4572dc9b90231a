package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PointsAddedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fog_points_added_total",
		Help: "Total primary points accepted",
	})
	PointsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fog_points_skipped_total",
		Help: "Total primary points dropped by the spacing rule",
	})
	ImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fog_imports_total",
		Help: "Scanned imports by outcome",
	}, []string{"outcome"})
	ChunksIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fog_chunks_ingested_total",
		Help: "Total transfer chunks accepted",
	})
	ExportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fog_exports_total",
		Help: "Total chunked exports generated",
	})
	SavesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fog_document_saves_total",
		Help: "Total fog document saves",
	})
	SaveFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fog_document_save_failures_total",
		Help: "Total failed fog document saves",
	})
	EstimateDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fog_estimate_duration_ms",
		Help:    "Coverage estimate duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	PrimaryPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fog_primary_points",
		Help: "Points in the primary layer",
	})
	SharedPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fog_shared_points",
		Help: "Points in the shared layer",
	})
	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fog_rate_limited_total",
		Help: "Requests rejected by rate limits",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(PointsAddedTotal)
	prometheus.MustRegister(PointsSkippedTotal)
	prometheus.MustRegister(ImportsTotal)
	prometheus.MustRegister(ChunksIngestedTotal)
	prometheus.MustRegister(ExportsTotal)
	prometheus.MustRegister(SavesTotal)
	prometheus.MustRegister(SaveFailuresTotal)
	prometheus.MustRegister(EstimateDurationMs)
	prometheus.MustRegister(PrimaryPoints)
	prometheus.MustRegister(SharedPoints)
	prometheus.MustRegister(RateLimitedTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
