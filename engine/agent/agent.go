package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/tmc/langchaingo/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	NodeAssistant = "sql_assistant"
	NodeTools     = "tools"
	NodeEnd       = "__end__"

	ErrCodeLLMGeneration = "LLM_GENERATION_ERROR"
	ErrCodeToolNotFound  = "TOOL_NOT_FOUND"
	ErrCodeToolExecution = "TOOL_EXECUTION_ERROR"
)

const tracerName = "sqlagent.agent"

var ErrMaxIterations = errors.New("agent: maximum iterations reached without a final answer")

// Event is emitted after each node finishes.
type Event struct {
	Node    string             `json:"node"`
	Message llmadapter.Message `json:"message"`
}

// Result is the state at the end of a run.
type Result struct {
	Messages   []llmadapter.Message
	Final      *llmadapter.Message
	Iterations int
}

// Recorder receives timing for model and tool calls.
type Recorder interface {
	RecordLLMCall(ctx context.Context, duration time.Duration, err error)
	RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordLLMCall(context.Context, time.Duration, error)          {}
func (nopRecorder) RecordToolCall(context.Context, string, time.Duration, error) {}

type Option func(*Agent)

func WithRecorder(r Recorder) Option {
	return func(a *Agent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithTracerProvider overrides the global otel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Agent) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

// Agent alternates between the assistant node and the tools node until the
// assistant answers without requesting tools.
type Agent struct {
	client   llmadapter.LLMClient
	tools    map[string]tools.Tool
	defs     []llmadapter.ToolDefinition
	cfg      Config
	recorder Recorder
	tracer   trace.Tracer
}

func New(client llmadapter.LLMClient, toolset []tools.Tool, cfg Config, opts ...Option) (*Agent, error) {
	if client == nil {
		return nil, fmt.Errorf("agent: llm client is required")
	}
	a := &Agent{
		client:   client,
		tools:    make(map[string]tools.Tool, len(toolset)),
		cfg:      cfg.withDefaults(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, t := range toolset {
		if _, dup := a.tools[t.Name()]; dup {
			return nil, fmt.Errorf("agent: duplicate tool %q", t.Name())
		}
		a.tools[t.Name()] = t
		a.defs = append(a.defs, definitionOf(t))
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func definitionOf(t tools.Tool) llmadapter.ToolDefinition {
	def := llmadapter.ToolDefinition{Name: t.Name(), Description: t.Description()}
	if d, ok := t.(interface{ Parameters() map[string]any }); ok {
		def.Parameters = d.Parameters()
	}
	return def
}

// ToolsCondition routes to the tools node when the assistant requested tools.
func ToolsCondition(msg *llmadapter.Message) string {
	if msg.HasToolCalls() {
		return NodeTools
	}
	return NodeEnd
}

// Invoke runs the loop to completion.
func (a *Agent) Invoke(ctx context.Context, messages []llmadapter.Message) (*Result, error) {
	return a.Stream(ctx, messages, nil)
}

// Stream runs the loop and calls fn after every node. A non-nil error from fn
// stops the run.
func (a *Agent) Stream(
	ctx context.Context,
	messages []llmadapter.Message,
	fn func(Event) error,
) (res *Result, err error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	ctx, span := a.tracer.Start(ctx, "sqlagent.agent.run", trace.WithAttributes(
		attribute.Int("max_iterations", a.cfg.MaxIterations),
		attribute.Int("tools", len(a.tools)),
	))
	res = &Result{Messages: append([]llmadapter.Message(nil), messages...)}
	defer func() {
		span.SetAttributes(attribute.Int("iterations", res.Iterations))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := logger.FromContext(ctx)
	emit := func(node string, msg llmadapter.Message) error {
		if fn == nil {
			return nil
		}
		return fn(Event{Node: node, Message: msg})
	}
	for res.Iterations < a.cfg.MaxIterations {
		res.Iterations++
		resp, err := a.generate(ctx, res.Messages)
		if err != nil {
			return res, err
		}
		msg := llmadapter.Message{
			Role:      llmadapter.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		res.Messages = append(res.Messages, msg)
		res.Final = &res.Messages[len(res.Messages)-1]
		if err := emit(NodeAssistant, msg); err != nil {
			return res, err
		}
		if ToolsCondition(&msg) == NodeEnd {
			log.Debug("Agent finished", "iterations", res.Iterations)
			return res, nil
		}
		results, err := a.executeTools(ctx, msg.ToolCalls)
		if err != nil {
			return res, err
		}
		toolMsg := llmadapter.Message{Role: llmadapter.RoleTool, ToolResults: results}
		res.Messages = append(res.Messages, toolMsg)
		res.Final = nil
		if err := emit(NodeTools, toolMsg); err != nil {
			return res, err
		}
	}
	log.Warn("Agent stopped at iteration limit", "max_iterations", a.cfg.MaxIterations)
	return res, ErrMaxIterations
}

func (a *Agent) request(messages []llmadapter.Message) *llmadapter.LLMRequest {
	return &llmadapter.LLMRequest{
		SystemPrompt: a.cfg.SystemPrompt,
		Messages:     messages,
		Tools:        a.defs,
		Options: llmadapter.CallOptions{
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		},
	}
}
