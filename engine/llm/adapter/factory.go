package llmadapter

import (
	"context"
	"fmt"

	"github.com/compozy/sqlagent/pkg/config"
)

// NewClient builds the LLMClient described by the llm config section.
func NewClient(ctx context.Context, cfg *config.LLMConfig) (*LangChainAdapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config must not be nil")
	}
	provider := ProviderConfigFromApp(cfg)
	switch provider.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderGoogle, ProviderMock:
		return NewLangChainAdapter(ctx, provider)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider.Provider)
	}
}
