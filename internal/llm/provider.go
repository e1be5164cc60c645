package llm

import (
	"context"
	"fmt"

	"code-reviewer/internal/config"
	"code-reviewer/internal/errs"
	"code-reviewer/pkg/logger"
)

// Provider is the language-model completion capability. Implementations
// return *errs.ProviderError for transport, status and decoding failures and
// *errs.ConfigurationError when a credential is missing.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProvider 根据配置创建模型提供方
func NewProvider(cfg *config.LLMConfig, logger logger.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIProvider(cfg, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg, logger), nil
	default:
		return nil, errs.NewConfigurationError("llm.provider", fmt.Sprintf("unsupported provider %q", cfg.Provider))
	}
}
