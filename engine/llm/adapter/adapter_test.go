package llmadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type recordingModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *recordingModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.opts)
	}
	return m.resp, m.err
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func TestLangChainAdapter_ConvertMessages(t *testing.T) {
	adapter := &LangChainAdapter{}

	t.Run("Should convert messages with system prompt", func(t *testing.T) {
		req := LLMRequest{
			SystemPrompt: "You are a SQL assistant",
			Messages: []Message{
				{Role: RoleUser, Content: "How many products?"},
				{Role: RoleAssistant, Content: "Five."},
			},
		}
		messages := adapter.convertMessages(&req)
		require.Len(t, messages, 3)
		assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
		assert.Equal(t, "You are a SQL assistant", messages[0].Parts[0].(llms.TextContent).Text)
		assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
		assert.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
		assert.Equal(t, "Five.", messages[2].Parts[0].(llms.TextContent).Text)
	})

	t.Run("Should carry tool calls and split tool results", func(t *testing.T) {
		req := LLMRequest{Messages: []Message{
			{Role: RoleUser, Content: "Describe products"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "c1", Name: "sql_db_list_tables"},
				{ID: "c2", Name: "sql_db_schema", Arguments: json.RawMessage(`{"table_names":"products"}`)},
			}},
			{Role: RoleTool, ToolResults: []ToolResult{
				{ID: "c1", Name: "sql_db_list_tables", Content: "products, suppliers"},
				{ID: "c2", Name: "sql_db_schema", Content: "CREATE TABLE products"},
			}},
		}}
		messages := adapter.convertMessages(&req)
		require.Len(t, messages, 4)
		ai := messages[1]
		assert.Equal(t, llms.ChatMessageTypeAI, ai.Role)
		require.Len(t, ai.Parts, 2)
		call := ai.Parts[0].(llms.ToolCall)
		assert.Equal(t, "c1", call.ID)
		assert.Equal(t, "{}", call.FunctionCall.Arguments)
		assert.JSONEq(t, `{"table_names":"products"}`, ai.Parts[1].(llms.ToolCall).FunctionCall.Arguments)
		for i, id := range []string{"c1", "c2"} {
			msg := messages[2+i]
			assert.Equal(t, llms.ChatMessageTypeTool, msg.Role)
			assert.Equal(t, id, msg.Parts[0].(llms.ToolCallResponse).ToolCallID)
		}
	})
}

func TestLangChainAdapter_GenerateContent(t *testing.T) {
	t.Run("Should pass tools and options through", func(t *testing.T) {
		model := &recordingModel{resp: textResponse("done")}
		adapter := NewLangChainAdapterWithModel(model, ProviderGroq)
		resp, err := adapter.GenerateContent(t.Context(), &LLMRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
			Tools:    []ToolDefinition{{Name: "sql_db_list_tables", Description: "list"}},
			Options:  CallOptions{Temperature: 0, MaxTokens: 64, ToolChoice: "auto"},
		})
		require.NoError(t, err)
		assert.Equal(t, "done", resp.Content)
		require.Len(t, model.opts.Tools, 1)
		assert.Equal(t, "sql_db_list_tables", model.opts.Tools[0].Function.Name)
		assert.NotNil(t, model.opts.Tools[0].Function.Parameters)
		assert.Equal(t, 64, model.opts.MaxTokens)
		assert.Equal(t, "auto", model.opts.ToolChoice)
	})

	t.Run("Should convert tool calls from the response", func(t *testing.T) {
		model := &recordingModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{
				{ID: "x", Type: "function", FunctionCall: &llms.FunctionCall{Name: "sql_db_query", Arguments: `{"query":"SELECT 1"}`}},
				{ID: "y", Type: "function"},
			},
		}}}}
		resp, err := NewLangChainAdapterWithModel(model, ProviderGroq).GenerateContent(t.Context(), &LLMRequest{
			Messages: []Message{{Role: RoleUser, Content: "run"}},
		})
		require.NoError(t, err)
		require.Len(t, resp.ToolCalls, 1)
		assert.Equal(t, "sql_db_query", resp.ToolCalls[0].Name)
		assert.JSONEq(t, `{"query":"SELECT 1"}`, string(resp.ToolCalls[0].Arguments))
	})

	t.Run("Should classify provider errors", func(t *testing.T) {
		model := &recordingModel{err: errors.New("API returned unexpected status code: 429: rate limit reached")}
		_, err := NewLangChainAdapterWithModel(model, ProviderGroq).GenerateContent(t.Context(), &LLMRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})
		var llmErr *Error
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeRateLimit, llmErr.Code)
		assert.True(t, llmErr.Retryable())
	})

	t.Run("Should fail on empty responses", func(t *testing.T) {
		model := &recordingModel{resp: &llms.ContentResponse{}}
		_, err := NewLangChainAdapterWithModel(model, ProviderGroq).GenerateContent(t.Context(), &LLMRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})
		assert.ErrorContains(t, err, "empty response")
	})

	t.Run("Should reject invalid conversations", func(t *testing.T) {
		model := &recordingModel{resp: textResponse("x")}
		_, err := NewLangChainAdapterWithModel(model, ProviderGroq).GenerateContent(t.Context(), &LLMRequest{
			Messages: []Message{{Role: RoleTool, ToolResults: []ToolResult{{ID: "orphan"}}}},
		})
		assert.ErrorContains(t, err, "invalid conversation")
		assert.Nil(t, model.messages)
	})
}

func TestValidateConversation(t *testing.T) {
	t.Run("Should accept answered tool calls", func(t *testing.T) {
		err := ValidateConversation([]Message{
			{Role: RoleUser, Content: "q"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "t"}}},
			{Role: RoleTool, ToolResults: []ToolResult{{ID: "1", Name: "t"}}},
			{Role: RoleAssistant, Content: "a"},
		})
		assert.NoError(t, err)
	})

	t.Run("Should reject tool calls on user messages", func(t *testing.T) {
		err := ValidateConversation([]Message{{Role: RoleUser, ToolCalls: []ToolCall{{ID: "1"}}}})
		assert.ErrorContains(t, err, "cannot contain ToolCalls")
	})

	t.Run("Should reject results for calls that were not made", func(t *testing.T) {
		err := ValidateConversation([]Message{
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1"}}},
			{Role: RoleUser, Content: "new question"},
			{Role: RoleTool, ToolResults: []ToolResult{{ID: "1"}}},
		})
		assert.ErrorContains(t, err, "unknown tool call")
	})
}

func TestErrorParser(t *testing.T) {
	parser := NewErrorParser("groq")

	t.Run("Should read status codes", func(t *testing.T) {
		err := parser.ParseError(errors.New("HTTP 503 upstream"))
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeServiceUnavailable, err.Code)
		assert.Equal(t, 503, err.StatusCode)
	})

	t.Run("Should not retry auth failures", func(t *testing.T) {
		err := parser.ParseError(errors.New("invalid api key provided"))
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeUnauthorized, err.Code)
		assert.False(t, err.Retryable())
	})

	t.Run("Should detect network failures", func(t *testing.T) {
		err := parser.ParseError(errors.New("dial tcp: connection refused"))
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeConnectionRefused, err.Code)
		assert.True(t, err.Retryable())
	})

	t.Run("Should return nil for unknown errors", func(t *testing.T) {
		assert.Nil(t, parser.ParseError(errors.New("something odd")))
		assert.Nil(t, parser.ParseError(nil))
	})
}

func TestNewModel(t *testing.T) {
	t.Run("Should build the mock provider", func(t *testing.T) {
		model, err := NewModel(t.Context(), &ProviderConfig{Provider: ProviderMock, Model: "m"})
		require.NoError(t, err)
		assert.IsType(t, &MockLLM{}, model)
	})

	t.Run("Should wrap models with limits", func(t *testing.T) {
		model, err := NewModel(t.Context(), &ProviderConfig{
			Provider: ProviderMock,
			Limits:   Limits{MaxConcurrent: 1, RequestsPerMinute: 600},
		})
		require.NoError(t, err)
		assert.IsType(t, &limitedModel{}, model)
		out, err := model.Call(t.Context(), "ping")
		require.NoError(t, err)
		assert.Equal(t, "Mock response for: ping", out)
	})

	t.Run("Should require a groq key", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "")
		_, err := NewModel(t.Context(), &ProviderConfig{Provider: ProviderGroq, Model: "gemma2-9b-it"})
		assert.ErrorContains(t, err, "GROQ_API_KEY")
	})

	t.Run("Should build groq from the environment key", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "gsk-test")
		model, err := NewModel(t.Context(), &ProviderConfig{Provider: ProviderGroq, Model: "gemma2-9b-it"})
		require.NoError(t, err)
		assert.NotNil(t, model)
	})

	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := NewModel(t.Context(), &ProviderConfig{Provider: "acme"})
		assert.ErrorContains(t, err, "unsupported provider")
	})
}

func TestNewClient(t *testing.T) {
	t.Run("Should build from the llm config section", func(t *testing.T) {
		cfg := config.Default().LLM
		cfg.Provider = "mock"
		client, err := NewClient(t.Context(), &cfg)
		require.NoError(t, err)
		defer client.Close()
		resp, err := client.GenerateContent(t.Context(), &LLMRequest{
			Messages: []Message{{Role: RoleUser, Content: "hello"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Mock response for: hello", resp.Content)
	})
}

func TestMockLLM(t *testing.T) {
	t.Run("Should call the first tool then answer from its output", func(t *testing.T) {
		adapter := NewLangChainAdapterWithModel(NewMockLLM("m"), ProviderMock)
		tools := []ToolDefinition{{Name: "sql_db_list_tables"}}
		msgs := []Message{{Role: RoleUser, Content: "what tables exist?"}}
		first, err := adapter.GenerateContent(t.Context(), &LLMRequest{Messages: msgs, Tools: tools})
		require.NoError(t, err)
		require.Len(t, first.ToolCalls, 1)
		call := first.ToolCalls[0]
		assert.Equal(t, "sql_db_list_tables", call.Name)

		msgs = append(msgs,
			Message{Role: RoleAssistant, ToolCalls: first.ToolCalls},
			Message{Role: RoleTool, ToolResults: []ToolResult{{ID: call.ID, Name: call.Name, Content: "products, suppliers"}}},
		)
		second, err := adapter.GenerateContent(t.Context(), &LLMRequest{Messages: msgs, Tools: tools})
		require.NoError(t, err)
		assert.Empty(t, second.ToolCalls)
		assert.Equal(t, "Based on the database: products, suppliers", second.Content)
	})
}
