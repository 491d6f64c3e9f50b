package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// Role constants for message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// LLMRequest represents a request to the LLM, independent of provider
type LLMRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	Options      CallOptions
}

// Message represents a conversation message
type Message struct {
	Role    string
	Content string
	// ToolCalls carries function calls emitted by the assistant.
	// Only messages with Role == "assistant" may contain ToolCalls.
	ToolCalls []ToolCall
	// ToolResults carries tool responses produced by the tools node.
	// Only messages with Role == "tool" may contain ToolResults.
	ToolResults []ToolResult
}

// HasToolCalls reports whether the message asks for tool execution.
func (m *Message) HasToolCalls() bool {
	return m != nil && m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// ToolDefinition represents a tool available to the LLM
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// ToolResult represents a tool's response payload for the LLM
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CallOptions represents options for the LLM call
type CallOptions struct {
	Temperature float64
	MaxTokens   int
	ToolChoice  string // "auto", "none", or a tool name
}

// LLMResponse represents the response from the LLM
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolCall represents a tool invocation request from the LLM
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// LLMClient is the main interface for LLM interactions
type LLMClient interface {
	// GenerateContent sends a request to the LLM and returns a response
	GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
	// Close cleans up any resources held by the client
	Close() error
}

// ValidateConversation asserts role-specific constraints for messages:
// only assistant messages carry ToolCalls, only tool messages carry
// ToolResults, and every tool result answers a call made by the closest
// preceding assistant message.
func ValidateConversation(messages []Message) error {
	pending := map[string]bool{}
	for i := range messages {
		m := &messages[i]
		if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
			return fmt.Errorf("message[%d] role %q cannot contain ToolCalls", i, m.Role)
		}
		if len(m.ToolResults) > 0 && m.Role != RoleTool {
			return fmt.Errorf("message[%d] role %q cannot contain ToolResults", i, m.Role)
		}
		switch m.Role {
		case RoleAssistant:
			pending = make(map[string]bool, len(m.ToolCalls))
			for _, call := range m.ToolCalls {
				pending[call.ID] = true
			}
		case RoleTool:
			for _, res := range m.ToolResults {
				if !pending[res.ID] {
					return fmt.Errorf("message[%d] answers unknown tool call %q", i, res.ID)
				}
			}
		default:
			pending = map[string]bool{}
		}
	}
	return nil
}
