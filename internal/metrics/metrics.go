// Package metrics exports gateway events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/events"
)

type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   prometheus.Histogram
	operations     *prometheus.CounterVec
	splitErrors    prometheus.Counter
	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	sourceBytes    *prometheus.HistogramVec
	merges         *prometheus.CounterVec
	mergeDuration  prometheus.Histogram
}

// New creates the gateway metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgraph_http_requests_total",
			Help: "HTTP requests served, by status code",
		}, []string{"code"}),
		httpDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgraph_operations_total",
			Help: "GraphQL operations executed, by type and outcome (ok, partial, error)",
		}, []string{"type", "outcome"}),
		splitErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "fedgraph_split_errors_total",
			Help: "Queries that could not be split across sources",
		}),
		sourceFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgraph_source_fetches_total",
			Help: "Local queries sent to sources, by source and outcome",
		}, []string{"source", "outcome"}),
		sourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedgraph_source_fetch_duration_seconds",
			Help:    "Duration of source fetches",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		sourceBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedgraph_source_response_bytes",
			Help:    "Size of source responses",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"source"}),
		merges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgraph_merges_total",
			Help: "Merged responses, by outcome",
		}, []string{"outcome"}),
		mergeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedgraph_merge_duration_seconds",
			Help:    "Duration of merging source responses",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Register subscribes m to the global bus.
func (m *Metrics) Register() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
			m.httpDuration.Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			o := "ok"
			switch {
			case e.Partial:
				o = "partial"
			case len(e.Errors) > 0:
				o = "error"
			}
			m.operations.WithLabelValues(e.OperationType, o).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.Split) {
			if e.Err != nil {
				m.splitErrors.Inc()
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.SourceFetchFinish) {
			m.sourceFetches.WithLabelValues(e.Source, outcome(e.Err)).Inc()
			m.sourceDuration.WithLabelValues(e.Source).Observe(e.Duration.Seconds())
			if e.Err == nil {
				m.sourceBytes.WithLabelValues(e.Source).Observe(float64(e.Bytes))
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.MergeFinish) {
			m.merges.WithLabelValues(outcome(e.Err)).Inc()
			m.mergeDuration.Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
