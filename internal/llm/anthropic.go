package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"code-reviewer/internal/config"
	"code-reviewer/internal/errs"
	"code-reviewer/pkg/logger"
)

const providerAnthropic = "anthropic"

// AnthropicProvider calls the Messages API through the official SDK, which
// retries 429 and 5xx responses itself.
type AnthropicProvider struct {
	client    anthropic.Client
	apiKey    string
	model     anthropic.Model
	maxTokens int64
	logger    logger.Logger
}

func NewAnthropicProvider(cfg *config.LLMConfig, logger logger.Logger) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if timeout := cfg.Timeout(); timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		apiKey:    cfg.APIKey,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (a *AnthropicProvider) Name() string {
	return providerAnthropic
}

func (a *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(a.apiKey) == "" {
		return "", errs.NewConfigurationError("llm.apiKey", "Anthropic API key is empty (set ANTHROPIC_API_KEY)")
	}

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", errs.NewProviderError(providerAnthropic, status, err)
	}

	a.logger.Debug("anthropic usage: input=%d output=%d", message.Usage.InputTokens, message.Usage.OutputTokens)

	if len(message.Content) == 0 {
		return "", errs.NewProviderError(providerAnthropic, 0, errors.New("response has no content blocks"))
	}
	content := message.Content[0]
	if content.Type != "text" {
		return "", errs.NewProviderError(providerAnthropic, 0, fmt.Errorf("unexpected content block type %q", content.Type))
	}
	return content.Text, nil
}
