package llmadapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type ProviderName string

const (
	ProviderGroq      ProviderName = "groq"
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOllama    ProviderName = "ollama"
	ProviderGoogle    ProviderName = "google"
	ProviderMock      ProviderName = "mock"

	groqBaseURL = "https://api.groq.com/openai/v1"
)

// apiKeyEnv lists the conventional environment variable of each hosted provider.
var apiKeyEnv = map[ProviderName]string{
	ProviderGroq:      "GROQ_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGoogle:    "GOOGLE_API_KEY",
}

// ProviderConfig selects and authenticates a model.
type ProviderConfig struct {
	Provider     ProviderName
	Model        string
	APIKey       string
	BaseURL      string
	Organization string
	Limits       Limits
}

// ProviderConfigFromApp maps the llm config section onto a ProviderConfig.
func ProviderConfigFromApp(cfg *config.LLMConfig) *ProviderConfig {
	return &ProviderConfig{
		Provider:     ProviderName(strings.ToLower(cfg.Provider)),
		Model:        cfg.Model,
		APIKey:       cfg.APIKey.Value(),
		BaseURL:      cfg.BaseURL,
		Organization: cfg.Organization,
		Limits: Limits{
			MaxConcurrent:     cfg.MaxConcurrent,
			RequestsPerMinute: cfg.RequestsPerMinute,
		},
	}
}

// ResolveAPIKey returns the configured key or the provider's environment variable.
func (p *ProviderConfig) ResolveAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if name, ok := apiKeyEnv[p.Provider]; ok {
		return os.Getenv(name)
	}
	return ""
}

// NewModel creates the langchaingo model for the configured provider.
func NewModel(ctx context.Context, p *ProviderConfig) (llms.Model, error) {
	if p == nil {
		return nil, fmt.Errorf("provider config must not be nil")
	}
	model, err := createModel(ctx, p)
	if err != nil {
		return nil, err
	}
	return WithLimits(model, p.Limits), nil
}

func createModel(ctx context.Context, p *ProviderConfig) (llms.Model, error) {
	switch p.Provider {
	case ProviderGroq, "":
		return createGroqLLM(p)
	case ProviderOpenAI:
		return createOpenAILLM(p, p.BaseURL)
	case ProviderAnthropic:
		return createAnthropicLLM(p)
	case ProviderOllama:
		return createOllamaLLM(p)
	case ProviderGoogle:
		return createGoogleLLM(ctx, p)
	case ProviderMock:
		return NewMockLLM(p.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", p.Provider)
	}
}

func createOpenAILLM(p *ProviderConfig, baseURL string) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(p.Model)}
	if key := p.ResolveAPIKey(); key != "" {
		opts = append(opts, openai.WithToken(key))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if p.Organization != "" {
		opts = append(opts, openai.WithOrganization(p.Organization))
	}
	return openai.New(opts...)
}

// Groq speaks the OpenAI wire protocol.
func createGroqLLM(p *ProviderConfig) (llms.Model, error) {
	if p.ResolveAPIKey() == "" {
		return nil, fmt.Errorf("groq requires an API key: set llm.api_key or %s", apiKeyEnv[ProviderGroq])
	}
	baseURL := groqBaseURL
	if p.BaseURL != "" {
		baseURL = p.BaseURL
	}
	return createOpenAILLM(p, baseURL)
}

func createAnthropicLLM(p *ProviderConfig) (llms.Model, error) {
	if p.Organization != "" {
		return nil, fmt.Errorf("anthropic does not support organization")
	}
	opts := []anthropic.Option{anthropic.WithModel(p.Model)}
	if key := p.ResolveAPIKey(); key != "" {
		opts = append(opts, anthropic.WithToken(key))
	}
	if p.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
	}
	return anthropic.New(opts...)
}

func createOllamaLLM(p *ProviderConfig) (llms.Model, error) {
	if p.Organization != "" {
		return nil, fmt.Errorf("ollama does not support organization")
	}
	opts := []ollama.Option{ollama.WithModel(p.Model)}
	if p.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(p.BaseURL))
	}
	return ollama.New(opts...)
}

func createGoogleLLM(ctx context.Context, p *ProviderConfig) (llms.Model, error) {
	if p.BaseURL != "" {
		return nil, fmt.Errorf("googleai does not support custom API URL")
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("googleai does not support organization")
	}
	opts := []googleai.Option{googleai.WithDefaultModel(p.Model)}
	if key := p.ResolveAPIKey(); key != "" {
		opts = append(opts, googleai.WithAPIKey(key))
	}
	return googleai.New(ctx, opts...)
}
