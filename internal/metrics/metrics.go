package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcome labels for LookupsTotal.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Metrics struct {
	LookupsTotal       *prometheus.CounterVec
	ProviderErrors     prometheus.Counter
	RequestSeconds     *prometheus.HistogramVec
	CacheEntries       prometheus.Gauge
	PendingPostalCodes prometheus.Gauge
	Checkpoints        prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LookupsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dealergeo_lookups_total",
			Help: "Total number of postal code lookups issued to the geocoding provider.",
		}, []string{"status"}),
		ProviderErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dealergeo_provider_errors_total",
			Help: "Total number of errors received from the geocoding provider.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealergeo_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		CacheEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dealergeo_cache_entries",
			Help: "Number of postal codes held in the resolution cache.",
		}),
		PendingPostalCodes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dealergeo_pending_postal_codes",
			Help: "Number of postal codes still waiting for a lookup in the current run.",
		}),
		Checkpoints: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dealergeo_checkpoints_total",
			Help: "Total number of cache and progress checkpoints written.",
		}),
	}
}
