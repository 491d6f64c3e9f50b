package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compozy/sqlagent/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	streamDurationBuckets   = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}
	timeToFirstEventBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
)

// StreamingMetrics captures the lifecycle of server-sent event streams.
type StreamingMetrics struct {
	activeStreams    metric.Int64UpDownCounter
	streamDuration   metric.Float64Histogram
	firstEventTiming metric.Float64Histogram
	eventsEmitted    metric.Int64Counter
	streamErrors     metric.Int64Counter
}

func newStreamingMetrics(meter metric.Meter) (*StreamingMetrics, error) {
	if meter == nil {
		return &StreamingMetrics{}, nil
	}
	active, err := meter.Int64UpDownCounter(
		metrics.MetricNameWithSubsystem("stream", "active_connections"),
		metric.WithDescription("Open SSE connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stream active connections counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("stream", "connection_duration_seconds"),
		metric.WithDescription("Duration of SSE connections in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(streamDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create stream duration histogram: %w", err)
	}
	ttfe, err := meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("stream", "time_to_first_event_seconds"),
		metric.WithDescription("Time between connection acceptance and first event emission"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(timeToFirstEventBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create time-to-first-event histogram: %w", err)
	}
	events, err := createInt64Counter(
		meter,
		metrics.MetricNameWithSubsystem("stream", "events_total"),
		"Total SSE events emitted grouped by event type",
	)
	if err != nil {
		return nil, err
	}
	errorsCounter, err := createInt64Counter(
		meter,
		metrics.MetricNameWithSubsystem("stream", "errors_total"),
		"Total SSE streams closed by an error grouped by reason",
	)
	if err != nil {
		return nil, err
	}
	return &StreamingMetrics{
		activeStreams:    active,
		streamDuration:   duration,
		firstEventTiming: ttfe,
		eventsEmitted:    events,
		streamErrors:     errorsCounter,
	}, nil
}

// StreamObservation tracks one open stream. All methods are safe on a nil
// receiver.
type StreamObservation struct {
	m       *StreamingMetrics
	ctx     context.Context
	attrs   attribute.Set
	started time.Time
	first   sync.Once
	done    sync.Once
}

// Begin marks a stream as open on route.
func (m *StreamingMetrics) Begin(ctx context.Context, route string) *StreamObservation {
	if m == nil || m.activeStreams == nil {
		return nil
	}
	o := &StreamObservation{
		m:       m,
		ctx:     context.WithoutCancel(ctx),
		attrs:   attribute.NewSet(attribute.String("route", route)),
		started: time.Now(),
	}
	m.activeStreams.Add(o.ctx, 1, metric.WithAttributeSet(o.attrs))
	return o
}

// Event counts an emitted event of the given type.
func (o *StreamObservation) Event(eventType string) {
	if o == nil {
		return
	}
	o.first.Do(func() {
		o.m.firstEventTiming.Record(o.ctx, time.Since(o.started).Seconds(), metric.WithAttributeSet(o.attrs))
	})
	o.m.eventsEmitted.Add(o.ctx, 1,
		metric.WithAttributeSet(o.attrs),
		metric.WithAttributes(attribute.String("event_type", eventType)),
	)
}

// Fail counts a stream terminated by reason.
func (o *StreamObservation) Fail(reason string) {
	if o == nil {
		return
	}
	o.m.streamErrors.Add(o.ctx, 1,
		metric.WithAttributeSet(o.attrs),
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// End closes the stream. Calls after the first are ignored.
func (o *StreamObservation) End() {
	if o == nil {
		return
	}
	o.done.Do(func() {
		o.m.activeStreams.Add(o.ctx, -1, metric.WithAttributeSet(o.attrs))
		o.m.streamDuration.Record(o.ctx, time.Since(o.started).Seconds(), metric.WithAttributeSet(o.attrs))
	})
}
