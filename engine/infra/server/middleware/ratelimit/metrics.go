package ratelimit

import (
	"context"
	"fmt"

	"github.com/compozy/sqlagent/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type blockCounter struct {
	blocked metric.Int64Counter
}

func newBlockCounter(meter metric.Meter) (*blockCounter, error) {
	if meter == nil {
		return nil, nil
	}
	counter, err := meter.Int64Counter(
		metrics.MetricNameWithSubsystem("rate_limit", "blocks_total"),
		metric.WithDescription("Total number of requests blocked by rate limiting"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rate limit counter: %w", err)
	}
	return &blockCounter{blocked: counter}, nil
}

func (b *blockCounter) inc(ctx context.Context, route string) {
	if b == nil {
		return
	}
	b.blocked.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
