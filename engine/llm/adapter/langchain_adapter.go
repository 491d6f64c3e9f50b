package llmadapter

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChainAdapter adapts langchaingo to our LLMClient interface
type LangChainAdapter struct {
	model    llms.Model
	provider ProviderName
	parser   *ErrorParser
}

// NewLangChainAdapter creates the provider model and wraps it
func NewLangChainAdapter(ctx context.Context, cfg *ProviderConfig) (*LangChainAdapter, error) {
	model, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}
	return NewLangChainAdapterWithModel(model, cfg.Provider), nil
}

// NewLangChainAdapterWithModel wraps an existing model
func NewLangChainAdapterWithModel(model llms.Model, provider ProviderName) *LangChainAdapter {
	return &LangChainAdapter{
		model:    model,
		provider: provider,
		parser:   NewErrorParser(string(provider)),
	}
}

// Model exposes the underlying langchaingo model.
func (a *LangChainAdapter) Model() llms.Model {
	return a.model
}

// GenerateContent implements LLMClient interface
func (a *LangChainAdapter) GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request must not be nil")
	}
	if err := ValidateConversation(req.Messages); err != nil {
		return nil, fmt.Errorf("invalid conversation: %w", err)
	}
	messages := a.convertMessages(req)
	options := a.buildCallOptions(req)
	response, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		if llmErr := a.parser.ParseError(err); llmErr != nil {
			return nil, llmErr
		}
		return nil, fmt.Errorf("langchain GenerateContent failed: %w", err)
	}
	return a.convertResponse(response)
}

func (a *LangChainAdapter) Close() error {
	return nil
}

// convertMessages converts our Message format to langchain MessageContent
func (a *LangChainAdapter) convertMessages(req *LLMRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for i := range req.Messages {
		msg := &req.Messages[i]
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, assistantMessage(msg))
		case RoleTool:
			// One message per result: OpenAI compatible APIs reject grouped tool responses.
			for _, res := range msg.ToolResults {
				messages = append(messages, llms.MessageContent{
					Role: llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{llms.ToolCallResponse{
						ToolCallID: res.ID,
						Name:       res.Name,
						Content:    res.Content,
					}},
				})
			}
		default:
			messages = append(messages, llms.TextParts(mapMessageRole(msg.Role), msg.Content))
		}
	}
	return messages
}

func assistantMessage(msg *Message) llms.MessageContent {
	parts := make([]llms.ContentPart, 0, len(msg.ToolCalls)+1)
	if msg.Content != "" {
		parts = append(parts, llms.TextContent{Text: msg.Content})
	}
	for _, call := range msg.ToolCalls {
		args := string(call.Arguments)
		if args == "" {
			args = "{}"
		}
		parts = append(parts, llms.ToolCall{
			ID:   call.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
}

// mapMessageRole maps our role to langchain ChatMessageType
func mapMessageRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

// buildCallOptions builds langchain call options from our request
func (a *LangChainAdapter) buildCallOptions(req *LLMRequest) []llms.CallOption {
	options := []llms.CallOption{llms.WithTemperature(req.Options.Temperature)}
	if req.Options.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.Options.MaxTokens))
	}
	if len(req.Tools) > 0 {
		options = append(options, llms.WithTools(convertTools(req.Tools)))
		if req.Options.ToolChoice != "" {
			options = append(options, llms.WithToolChoice(req.Options.ToolChoice))
		}
	}
	return options
}

// convertTools converts our tool definitions to langchain format
func convertTools(tools []ToolDefinition) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		params := tool.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// convertResponse converts langchain response to our format
func (a *LangChainAdapter) convertResponse(resp *llms.ContentResponse) (*LLMResponse, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, fmt.Errorf("empty response from LLM")
	}
	choice := resp.Choices[0]
	response := &LLMResponse{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		args := tc.FunctionCall.Arguments
		if args == "" {
			args = "{}"
		}
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: []byte(args),
		})
	}
	return response, nil
}
