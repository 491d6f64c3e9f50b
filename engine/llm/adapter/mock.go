package llmadapter

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// MockLLM is a deterministic model. Offered tools are called once, in order,
// with empty arguments, then the collected tool output is summarized.
type MockLLM struct {
	model string
}

func NewMockLLM(model string) *MockLLM {
	return &MockLLM{model: model}
}

func (m *MockLLM) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	question, toolOutput := m.scan(messages)
	if len(opts.Tools) > 0 && toolOutput == "" {
		tool := opts.Tools[0]
		if tool.Function != nil {
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
				ToolCalls: []llms.ToolCall{{
					ID:   "call_" + uuid.NewString(),
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tool.Function.Name,
						Arguments: "{}",
					},
				}},
			}}}, nil
		}
	}
	var answer string
	switch {
	case toolOutput != "":
		answer = "Based on the database: " + toolOutput
	case question != "":
		answer = "Mock response for: " + question
	default:
		answer = "Mock response"
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: answer, StopReason: "stop"}}}, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// scan returns the latest human text and any tool output that follows it.
func (m *MockLLM) scan(messages []llms.MessageContent) (string, string) {
	var question string
	var outputs []string
	for _, msg := range messages {
		switch msg.Role {
		case llms.ChatMessageTypeHuman:
			question = textOf(msg)
			outputs = nil
		case llms.ChatMessageTypeTool:
			for _, part := range msg.Parts {
				if res, ok := part.(llms.ToolCallResponse); ok {
					outputs = append(outputs, res.Content)
				}
			}
		}
	}
	return question, strings.Join(outputs, "\n")
}

func textOf(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
