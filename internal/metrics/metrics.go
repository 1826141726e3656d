// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tg_analytics/internal/model"
)

const namespace = "tg_analytics"

// Metrics holds all collectors.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	FallbacksTotal   prometheus.Counter
	NarrativesTotal  *prometheus.CounterVec
	PDFCacheTotal    *prometheus.CounterVec
	NarrativesPruned prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates and registers all collectors on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Channel analyses by caller and outcome.",
		}, []string{"source", "result"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time to fetch and analyze a channel.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_reports_total",
			Help:      "Reports built from the last posts of an inactive channel.",
		}),
		NarrativesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narratives_total",
			Help:      "Narrative requests by outcome: generated, cached or error.",
		}, []string{"result"}),
		PDFCacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_cache_total",
			Help:      "PDF cache lookups by outcome.",
		}, []string{"result"}),
		NarrativesPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narratives_pruned_total",
			Help:      "Narratives deleted by retention.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveAnalysis records one analysis run.
func (m *Metrics) ObserveAnalysis(source string, d time.Duration, rep *model.Report, err error) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(source, Result(err)).Inc()
	m.AnalysisDuration.WithLabelValues(source).Observe(d.Seconds())
	if err == nil && rep != nil && rep.AnalysisPeriod.UsedFallback {
		m.FallbacksTotal.Inc()
	}
}

// ObserveNarrative records a narrative request outcome.
func (m *Metrics) ObserveNarrative(result string) {
	if m == nil {
		return
	}
	m.NarrativesTotal.WithLabelValues(result).Inc()
}

// ObservePDFCache records a PDF cache hit or miss.
func (m *Metrics) ObservePDFCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.PDFCacheTotal.WithLabelValues(result).Inc()
}

// ObservePruned records narratives removed by retention.
func (m *Metrics) ObservePruned(n int64) {
	if m == nil {
		return
	}
	m.NarrativesPruned.Add(float64(n))
}

// Middleware counts and times HTTP requests by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Result maps an error to a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrNoDataInPeriod):
		return "no_data"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, model.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
