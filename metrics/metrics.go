package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the service's Prometheus metrics. Construct once and
// share; all recording methods are safe for concurrent use.
type Metrics struct {
	requestsTotal          *prometheus.CounterVec
	analysisDuration       prometheus.Histogram
	scoreDistribution      *prometheus.HistogramVec
	cacheHitsTotal         prometheus.Counter
	cacheMissesTotal       prometheus.Counter
	fetchFailuresTotal     prometheus.Counter
	recommendationFailures prometheus.Counter
	emailsTotal            *prometheus.CounterVec
}

// New registers the collectors with the default registerer.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with a custom registerer, which
// tests use to avoid duplicate registration.
func NewWithRegistry(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests processed by path, method and status",
		},
		[]string{"path", "method", "status"},
	)

	m.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End to end time of one page analysis",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.scoreDistribution = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_distribution",
			Help:      "Normalized scores by component and vertical",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"component", "vertical"},
	)

	m.cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Analyses served from the response cache",
	})

	m.cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Analyses that required a fresh fetch",
	})

	m.fetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Page fetches that failed outright",
	})

	m.recommendationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendation_failures_total",
		Help:      "Recommendation calls that errored or timed out",
	})

	m.emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Report emails by delivery outcome",
		},
		[]string{"outcome"},
	)

	registerer.MustRegister(
		m.requestsTotal,
		m.analysisDuration,
		m.scoreDistribution,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.fetchFailuresTotal,
		m.recommendationFailures,
		m.emailsTotal,
	)
	return m
}

func (m *Metrics) RecordRequest(path, method string, status int) {
	m.requestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveAnalysisDuration(d time.Duration) {
	m.analysisDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveScore(component, vertical string, score int) {
	m.scoreDistribution.WithLabelValues(component, vertical).Observe(float64(score))
}

func (m *Metrics) RecordCacheHit()  { m.cacheHitsTotal.Inc() }
func (m *Metrics) RecordCacheMiss() { m.cacheMissesTotal.Inc() }

func (m *Metrics) RecordFetchFailure() { m.fetchFailuresTotal.Inc() }

func (m *Metrics) RecordRecommendationFailure() { m.recommendationFailures.Inc() }

func (m *Metrics) RecordEmail(sent bool) {
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	m.emailsTotal.WithLabelValues(outcome).Inc()
}
