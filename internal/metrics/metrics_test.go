package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/events"
)

func TestMetrics(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	reg := prometheus.NewRegistry()
	m := New(reg)
	unsubscribe := m.Register()

	ctx := context.Background()
	eventbus.Publish(ctx, events.SourceFetchFinish{Source: "customers", Bytes: 100, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.SourceFetchFinish{Source: "customers", Bytes: 100})
	eventbus.Publish(ctx, events.SourceFetchFinish{Source: "clients", Err: errors.New("boom")})
	eventbus.Publish(ctx, events.Split{Err: errors.New("uncovered")})
	eventbus.Publish(ctx, events.MergeFinish{Sources: 2})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query"})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Errors: []error{errors.New("x")}, Partial: true})
	eventbus.Publish(ctx, events.HTTPFinish{Status: 200})

	require.Equal(t, 2.0, testutil.ToFloat64(m.sourceFetches.WithLabelValues("customers", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sourceFetches.WithLabelValues("clients", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.splitErrors))
	require.Equal(t, 1.0, testutil.ToFloat64(m.merges.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "partial")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("200")))

	unsubscribe()
	eventbus.Publish(ctx, events.HTTPFinish{Status: 200})
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("200")))

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	require.True(t, strings.Contains(w.Body.String(), `fedgraph_source_fetches_total{outcome="ok",source="customers"} 2`))
}
