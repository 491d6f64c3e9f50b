package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/compozy/sqlagent/engine/infra/monitoring/metrics"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpInstruments struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	total, err := meter.Int64Counter(
		metrics.MetricNameWithSubsystem("http", "requests_total"),
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http requests total counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("http", "request_duration_seconds"),
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create http request duration histogram: %w", err)
	}
	inFlight, err := meter.Int64UpDownCounter(
		metrics.MetricNameWithSubsystem("http", "requests_in_flight"),
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http requests in flight counter: %w", err)
	}
	return &httpInstruments{requestsTotal: total, requestDuration: duration, requestsInFlight: inFlight}, nil
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	inst, err := newHTTPInstruments(meter)
	if err != nil {
		logger.Error("Failed to create HTTP metrics, requests will not be measured", "error", err)
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		inst.requestsInFlight.Add(ctx, 1)
		defer inst.requestsInFlight.Add(ctx, -1)
		c.Next()
		inst.record(c, start)
	}
}

func (i *httpInstruments) record(c *gin.Context, start time.Time) {
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("path", path),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)
	i.requestsTotal.Add(c.Request.Context(), 1, attrs)
	i.requestDuration.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
}
