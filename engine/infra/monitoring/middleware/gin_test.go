package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/compozy/sqlagent/engine/infra/monitoring/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newMeteredRouter(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetrics(provider.Meter("test")))
	router.GET("/tables/data/:table_name", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"table": c.Param("table_name")})
	})
	router.POST("/direct_query", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No query provided"})
	})
	return router, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
	return w
}

func TestHTTPMetrics(t *testing.T) {
	total := metrics.MetricNameWithSubsystem("http", "requests_total")
	duration := metrics.MetricNameWithSubsystem("http", "request_duration_seconds")
	inFlight := metrics.MetricNameWithSubsystem("http", "requests_in_flight")

	t.Run("Should record the route template and status", func(t *testing.T) {
		router, reader := newMeteredRouter(t)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/tables/data/products").Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/tables/data/suppliers").Code)
		got := collect(t, reader)
		sum, ok := got[total].Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		attrs := sum.DataPoints[0].Attributes.ToSlice()
		assert.Contains(t, attrs, attribute.String("path", "/tables/data/:table_name"))
		assert.Contains(t, attrs, attribute.String("status_code", "200"))
		assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	})
	t.Run("Should label client errors", func(t *testing.T) {
		router, reader := newMeteredRouter(t)
		serve(router, http.MethodPost, "/direct_query")
		sum := collect(t, reader)[total].Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		attrs := sum.DataPoints[0].Attributes.ToSlice()
		assert.Contains(t, attrs, attribute.String("method", "POST"))
		assert.Contains(t, attrs, attribute.String("status_code", "400"))
	})
	t.Run("Should collapse unknown routes", func(t *testing.T) {
		router, reader := newMeteredRouter(t)
		serve(router, http.MethodGet, "/nope/1")
		serve(router, http.MethodGet, "/nope/2")
		sum := collect(t, reader)[total].Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Contains(t, sum.DataPoints[0].Attributes.ToSlice(), attribute.String("path", "unmatched"))
	})
	t.Run("Should record latency with the http buckets", func(t *testing.T) {
		router, reader := newMeteredRouter(t)
		serve(router, http.MethodGet, "/tables/data/products")
		hist, ok := collect(t, reader)[duration].Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, metrics.HTTPDurationBuckets, hist.DataPoints[0].Bounds)
		assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	})
	t.Run("Should return to zero in flight requests", func(t *testing.T) {
		router, reader := newMeteredRouter(t)
		serve(router, http.MethodGet, "/tables/data/products")
		sum, ok := collect(t, reader)[inFlight].Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(0), sum.DataPoints[0].Value)
	})
	t.Run("Should pass through with a nil meter", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(HTTPMetrics(nil))
		router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/ok").Code)
	})
}
