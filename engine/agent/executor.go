package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compozy/sqlagent/engine/core"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// executeTools runs every call of one assistant turn, at most
// MaxToolConcurrency at a time, keeping results in call order.
func (a *Agent) executeTools(ctx context.Context, calls []llmadapter.ToolCall) ([]llmadapter.ToolResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("Executing tool calls", "tool_calls_count", len(calls))
	results := make([]llmadapter.ToolResult, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxToolConcurrency)
	for i := range calls {
		call := calls[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.executeSingle(ctx, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) executeSingle(ctx context.Context, call llmadapter.ToolCall) llmadapter.ToolResult {
	log := logger.FromContext(ctx).With("tool_name", call.Name, "tool_call_id", call.ID)
	t, ok := a.tools[call.Name]
	if !ok {
		log.Debug("Tool not found")
		err := core.NewError(fmt.Errorf("tool not found: %s", call.Name), ErrCodeToolNotFound, nil)
		return failureResult(call, err)
	}
	start := time.Now()
	out, err := t.Call(ctx, toolInput(call.Arguments))
	a.recorder.RecordToolCall(ctx, call.Name, time.Since(start), err)
	if err != nil {
		log.Debug("Tool execution failed", "error", core.RedactError(err))
		return failureResult(call, core.NewError(err, ErrCodeToolExecution, nil))
	}
	log.Debug("Tool execution succeeded")
	return llmadapter.ToolResult{ID: call.ID, Name: call.Name, Content: out}
}

func failureResult(call llmadapter.ToolCall, err *core.Error) llmadapter.ToolResult {
	b, merr := json.Marshal(map[string]any{"error": err.AsMap()})
	if merr != nil {
		b = []byte(`{"error":{"code":"` + err.Code + `"}}`)
	}
	return llmadapter.ToolResult{ID: call.ID, Name: call.Name, Content: string(b)}
}

// toolInput hands tools the raw JSON arguments; the tools accept both JSON
// objects and plain strings.
func toolInput(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	return string(args)
}
