package uc

import (
	"context"
	"fmt"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/chat"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/pkg/logger"
)

// Runner drives the assistant/tools loop.
type Runner interface {
	Stream(ctx context.Context, messages []llmadapter.Message, fn func(agent.Event) error) (*agent.Result, error)
}

// ChatResult is the payload of a natural language query.
type ChatResult struct {
	Result         string       `json:"result"`
	RelevantAnswer string       `json:"relevant_answer"`
	ChatHistory    []chat.Entry `json:"chat_history"`
}

type ChatQuery struct {
	runner  Runner
	history chat.History
}

func NewChatQuery(runner Runner, history chat.History) *ChatQuery {
	return &ChatQuery{runner: runner, history: history}
}

func (uc *ChatQuery) Execute(ctx context.Context, input string) (*ChatResult, error) {
	return uc.Stream(ctx, input, nil)
}

// Stream answers input and forwards every node update to fn. The user turn is
// recorded before the agent runs; the assistant turn only when it is not empty.
func (uc *ChatQuery) Stream(ctx context.Context, input string, fn func(agent.Event) error) (*ChatResult, error) {
	if err := ValidateInput(input); err != nil {
		return nil, err
	}
	if uc.runner == nil || uc.history == nil {
		return nil, ErrNoRunnerConfig
	}
	prior, err := uc.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if err := uc.history.Append(ctx, chat.NewEntry(chat.RoleUser, input)); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}
	messages := toMessages(prior)
	messages = append(messages, llmadapter.Message{Role: llmadapter.RoleUser, Content: input})
	res, err := uc.runner.Stream(ctx, messages, fn)
	if err != nil {
		return nil, err
	}
	answer := agent.AnswerText(res.Final)
	out := &ChatResult{RelevantAnswer: answer}
	if answer == "" {
		logger.FromContext(ctx).Warn("Agent returned an empty answer", "iterations", res.Iterations)
	} else {
		out.Result = agent.Describe(res.Final)
		if err := uc.history.Append(ctx, chat.NewEntry(chat.RoleAssistant, answer)); err != nil {
			return nil, fmt.Errorf("failed to record assistant message: %w", err)
		}
	}
	out.ChatHistory, err = uc.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return out, nil
}

func toMessages(entries []chat.Entry) []llmadapter.Message {
	out := make([]llmadapter.Message, 0, len(entries)+1)
	for _, e := range entries {
		role := llmadapter.RoleUser
		if e.Role == chat.RoleAssistant {
			role = llmadapter.RoleAssistant
		}
		out = append(out, llmadapter.Message{Role: role, Content: e.Content})
	}
	return out
}

// -----------------------------------------------------------------------------
// ChatHistory
// -----------------------------------------------------------------------------

type ChatHistory struct {
	history chat.History
}

func NewChatHistory(history chat.History) *ChatHistory {
	return &ChatHistory{history: history}
}

func (uc *ChatHistory) List(ctx context.Context) ([]chat.Entry, error) {
	entries, err := uc.history.List(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []chat.Entry{}
	}
	return entries, nil
}

func (uc *ChatHistory) Clear(ctx context.Context) error {
	return uc.history.Clear(ctx)
}
