package agent

import (
	"testing"

	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestAgent_Tracing(t *testing.T) {
	t.Run("Should record one span per run with the iteration count", func(t *testing.T) {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		list := &stubTool{name: "sql_db_list_tables", out: "products"}
		client := &scriptedClient{steps: []step{
			{resp: &llmadapter.LLMResponse{ToolCalls: []llmadapter.ToolCall{toolCall("1", "sql_db_list_tables", "{}")}}},
			{resp: &llmadapter.LLMResponse{Content: "products"}},
		}}
		a, err := New(client, []tools.Tool{list}, fastConfig(), WithTracerProvider(tp))
		require.NoError(t, err)
		_, err = a.Invoke(t.Context(), userMessages("tables?"))
		require.NoError(t, err)

		spans := rec.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "sqlagent.agent.run", spans[0].Name())
		iterations, ok := spanAttr(spans[0], "iterations")
		require.True(t, ok)
		assert.EqualValues(t, 2, iterations.AsInt64())
		assert.Equal(t, codes.Unset, spans[0].Status().Code)
	})

	t.Run("Should mark the span failed when the loop gives up", func(t *testing.T) {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		loop := &stubTool{name: "sql_db_list_tables", out: "products"}
		client := &scriptedClient{steps: []step{
			{resp: &llmadapter.LLMResponse{ToolCalls: []llmadapter.ToolCall{toolCall("1", "sql_db_list_tables", "{}")}}},
		}}
		cfg := fastConfig()
		cfg.MaxIterations = 1
		a, err := New(client, []tools.Tool{loop}, cfg, WithTracerProvider(tp))
		require.NoError(t, err)
		_, err = a.Invoke(t.Context(), userMessages("loop"))
		require.ErrorIs(t, err, ErrMaxIterations)

		spans := rec.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})
}
