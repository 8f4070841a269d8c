package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewHTTPMetrics_NilProvider(t *testing.T) {
	t.Parallel()

	metrics, err := NewHTTPMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestHTTPMetrics_NilMiddlewarePassesThrough(t *testing.T) {
	t.Parallel()

	var metrics *HTTPMetrics
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	metrics.Middleware(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestHTTPMetrics_RecordsRequest(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	metrics, err := NewHTTPMetrics(provider)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/list-users", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]bool)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
	}
	assert.True(t, names["admin_gw_http_request_duration_seconds"])
	assert.True(t, names["admin_gw_http_requests_total"])
	assert.True(t, names["admin_gw_http_active_requests"])

	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "admin_gw_http_requests_total" {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)

		method, ok := sum.DataPoints[0].Attributes.Value("method")
		require.True(t, ok)
		assert.Equal(t, http.MethodGet, method.AsString())

		// The request did not pass through a chi router, so the route
		// pattern falls back to the bounded placeholder.
		route, ok := sum.DataPoints[0].Attributes.Value("route")
		require.True(t, ok)
		assert.Equal(t, "unknown_route", route.AsString())

		status, ok := sum.DataPoints[0].Attributes.Value("status_code")
		require.True(t, ok)
		assert.Equal(t, "200", status.AsString())
	}
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("nil provider yields pass-through", func(t *testing.T) {
		t.Parallel()
		mw, err := MetricsMiddleware(nil)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		rr := httptest.NewRecorder()
		mw(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("real provider instruments requests", func(t *testing.T) {
		t.Parallel()
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() {
			_ = provider.Shutdown(context.Background())
		})

		mw, err := MetricsMiddleware(provider)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		rr := httptest.NewRecorder()
		mw(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		require.NotEmpty(t, rm.ScopeMetrics)
	})
}
