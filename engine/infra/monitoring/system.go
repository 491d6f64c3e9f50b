package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/sqlagent/engine/infra/monitoring/metrics"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/compozy/sqlagent/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// systemMetrics publishes build information and process uptime.
type systemMetrics struct {
	buildInfo    metric.Float64Gauge
	uptime       metric.Float64ObservableGauge
	registration metric.Registration
	started      time.Time
}

func newSystemMetrics(ctx context.Context, meter metric.Meter) (*systemMetrics, error) {
	buildInfo, err := meter.Float64Gauge(
		metrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create build info gauge: %w", err)
	}
	uptime, err := meter.Float64ObservableGauge(
		metrics.MetricName("uptime_seconds"),
		metric.WithDescription("Service uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create uptime gauge: %w", err)
	}
	m := &systemMetrics{buildInfo: buildInfo, uptime: uptime, started: time.Now()}
	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(m.uptime, time.Since(m.started).Seconds())
		return nil
	}, uptime)
	if err != nil {
		return nil, fmt.Errorf("register uptime callback: %w", err)
	}
	info := version.Get()
	buildInfo.Record(ctx, 1, metric.WithAttributes(
		attribute.String("version", info.Version),
		attribute.String("commit_hash", info.CommitHash),
		attribute.String("go_version", info.GoVersion),
	))
	logger.FromContext(ctx).Debug("System metrics initialized",
		"version", info.Version,
		"commit", info.CommitHash,
		"go_version", info.GoVersion,
	)
	return m, nil
}

func (m *systemMetrics) close() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
