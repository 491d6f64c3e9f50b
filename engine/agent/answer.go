package agent

import (
	"fmt"
	"strings"

	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
)

// AnswerText returns the assistant's textual answer, or "" when msg is not a
// final assistant message.
func AnswerText(msg *llmadapter.Message) string {
	if msg == nil || msg.Role != llmadapter.RoleAssistant {
		return ""
	}
	return strings.TrimSpace(msg.Content)
}

// Describe renders a message on one line for logs and API payloads.
func Describe(msg *llmadapter.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(msg.Role)
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(msg.Content))
	for _, call := range msg.ToolCalls {
		fmt.Fprintf(&b, " [call %s(%s)]", call.Name, string(call.Arguments))
	}
	for _, res := range msg.ToolResults {
		fmt.Fprintf(&b, " [result %s: %s]", res.Name, res.Content)
	}
	return b.String()
}
