package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/core"
	"github.com/compozy/sqlagent/engine/infra/monitoring/metrics"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	labelOutcome   = "outcome"
	labelTool      = "tool"
	labelErrorCode = "error_code"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// AgentMetrics records model and tool call timings for the agent loop.
type AgentMetrics struct {
	llmCalls     metric.Int64Counter
	llmLatency   metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolLatency  metric.Float64Histogram
	agentFailure metric.Int64Counter
}

var _ agent.Recorder = (*AgentMetrics)(nil)

func createInt64Counter(meter metric.Meter, name, description string) (metric.Int64Counter, error) {
	counter, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %q: %w", name, err)
	}
	return counter, nil
}

func createFloat64Histogram(
	meter metric.Meter,
	name string,
	description string,
	buckets []float64,
) (metric.Float64Histogram, error) {
	histogram, err := meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram %q: %w", name, err)
	}
	return histogram, nil
}

func newAgentMetrics(meter metric.Meter) (*AgentMetrics, error) {
	if meter == nil {
		return &AgentMetrics{}, nil
	}
	llmCalls, err := createInt64Counter(
		meter,
		metrics.MetricNameWithSubsystem("agent", "llm_calls_total"),
		"Total model calls made by the agent loop",
	)
	if err != nil {
		return nil, err
	}
	llmLatency, err := createFloat64Histogram(
		meter,
		metrics.MetricNameWithSubsystem("agent", "llm_call_duration_seconds"),
		"Model call latency including retries",
		metrics.LLMDurationBuckets,
	)
	if err != nil {
		return nil, err
	}
	toolCalls, err := createInt64Counter(
		meter,
		metrics.MetricNameWithSubsystem("agent", "tool_calls_total"),
		"Total SQL tool invocations",
	)
	if err != nil {
		return nil, err
	}
	toolLatency, err := createFloat64Histogram(
		meter,
		metrics.MetricNameWithSubsystem("agent", "tool_call_duration_seconds"),
		"SQL tool latency",
		metrics.ToolDurationBuckets,
	)
	if err != nil {
		return nil, err
	}
	failures, err := createInt64Counter(
		meter,
		metrics.MetricNameWithSubsystem("agent", "failures_total"),
		"Model and tool failures grouped by error code",
	)
	if err != nil {
		return nil, err
	}
	return &AgentMetrics{
		llmCalls:     llmCalls,
		llmLatency:   llmLatency,
		toolCalls:    toolCalls,
		toolLatency:  toolLatency,
		agentFailure: failures,
	}, nil
}

func outcomeOf(err error) string {
	if err != nil {
		return outcomeFailure
	}
	return outcomeSuccess
}

func (m *AgentMetrics) RecordLLMCall(ctx context.Context, duration time.Duration, err error) {
	if m == nil || m.llmCalls == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(labelOutcome, outcomeOf(err)))
	m.llmCalls.Add(ctx, 1, attrs)
	m.llmLatency.Record(ctx, duration.Seconds(), attrs)
	m.recordFailure(ctx, "llm", err)
}

func (m *AgentMetrics) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolCalls == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(labelTool, tool),
		attribute.String(labelOutcome, outcomeOf(err)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolLatency.Record(ctx, duration.Seconds(), attrs)
	m.recordFailure(ctx, "tool", err)
}

func (m *AgentMetrics) recordFailure(ctx context.Context, stage string, err error) {
	if err == nil {
		return
	}
	m.agentFailure.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String(labelErrorCode, errorCode(err)),
	))
}

func errorCode(err error) string {
	if code := core.CodeOf(err); code != "" {
		return code
	}
	var llmErr *llmadapter.Error
	if errors.As(err, &llmErr) && llmErr.Code != "" {
		return llmErr.Code
	}
	return "unknown"
}
