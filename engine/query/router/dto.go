package qrouter

import (
	"encoding/json"

	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
)

type ChatQueryRequest struct {
	InputMessage string `json:"input_message"`
}

type DirectQueryRequest struct {
	Query string `json:"query"`
}

type ToolCallDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ToolResultDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// MessageDTO is one node update sent over the chat stream.
type MessageDTO struct {
	Role        string          `json:"role"`
	Content     string          `json:"content,omitempty"`
	ToolCalls   []ToolCallDTO   `json:"tool_calls,omitempty"`
	ToolResults []ToolResultDTO `json:"tool_results,omitempty"`
}

func toMessageDTO(msg *llmadapter.Message) MessageDTO {
	out := MessageDTO{Role: msg.Role, Content: msg.Content}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCallDTO{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
	}
	for _, res := range msg.ToolResults {
		out.ToolResults = append(out.ToolResults, ToolResultDTO(res))
	}
	return out
}
