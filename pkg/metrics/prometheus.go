package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects client-side metrics: backend calls, store mutations and
// loader fetches.
type Recorder struct {
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	storeMutation *prometheus.CounterVec
	storeSize     *prometheus.GaugeVec
	fetchTotal    *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// New registers the recorder's collectors on reg, or on the default
// registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		apiRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personal_qt_api_requests_total",
				Help: "Backend API requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		apiLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "personal_qt_api_request_duration_seconds",
				Help:    "Backend API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		storeMutation: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personal_qt_store_mutations_total",
				Help: "Whole-collection replacements per collection",
			},
			[]string{"collection"},
		),
		storeSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "personal_qt_store_records",
				Help: "Records currently held per collection",
			},
			[]string{"collection"},
		),
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personal_qt_loader_fetches_total",
				Help: "Loader fetch-and-commit runs by collection and result",
			},
			[]string{"collection", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "personal_qt_loader_fetch_duration_seconds",
				Help:    "Loader fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personal_qt_cache_lookups_total",
				Help: "Loader cache lookups by result",
			},
			[]string{"collection", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personal_qt_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRequest records one backend exchange. Outcome is "ok" or the
// failure kind.
func (r *Recorder) RecordRequest(method, outcome string, seconds float64) {
	r.apiRequests.WithLabelValues(method, outcome).Inc()
	if seconds > 0 {
		r.apiLatency.WithLabelValues(method).Observe(seconds)
	}
}

// RecordMutation records a collection replacement and its new size.
func (r *Recorder) RecordMutation(collection string, size int) {
	r.storeMutation.WithLabelValues(collection).Inc()
	r.storeSize.WithLabelValues(collection).Set(float64(size))
}

// RecordFetch records a loader run for one collection.
func (r *Recorder) RecordFetch(collection string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetchTotal.WithLabelValues(collection, result).Inc()
	r.fetchLatency.WithLabelValues(collection).Observe(seconds)
}

// RecordCacheLookup records whether a loader read was served from cache.
func (r *Recorder) RecordCacheLookup(collection string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(collection, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
