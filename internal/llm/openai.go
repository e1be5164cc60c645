package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"code-reviewer/internal/config"
	"code-reviewer/internal/errs"
	"code-reviewer/pkg/logger"
)

const providerOpenAI = "openai"

// ChatCompletionRequest 聊天完成请求
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Message 消息
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	maxRetries int
	httpClient *fasthttp.Client
	logger     logger.Logger
	newBackOff func() backoff.BackOff
}

// NewOpenAIProvider 创建 OpenAI 客户端. An empty API key is accepted here and
// reported on the first call.
func NewOpenAIProvider(cfg *config.LLMConfig, logger logger.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &OpenAIProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		httpClient: &fasthttp.Client{
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        60 * time.Second,
			MaxConnsPerHost:     64,
		},
		logger: logger,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Second
			bo.MaxElapsedTime = 0
			return bo
		},
	}
}

func (c *OpenAIProvider) Name() string {
	return providerOpenAI
}

// Complete sends one system + user message pair and returns
// choices[0].message.content. Transport failures, 429 and 5xx are retried.
func (c *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", errs.NewConfigurationError("llm.apiKey", "OpenAI API key is empty (set OPENAI_API_KEY)")
	}

	body, err := json.Marshal(&ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", errs.NewProviderError(providerOpenAI, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	var (
		content string
		attempt int
	)
	start := time.Now()
	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(max(c.maxRetries, 0))), ctx)
	err = backoff.Retry(func() error {
		attempt++
		var callErr error
		content, callErr = c.doComplete(ctx, body)
		if callErr != nil {
			c.logger.Debug("LLM request attempt %d failed: %v", attempt, callErr)
		}
		return callErr
	}, bo)
	if err != nil {
		var pe *errs.ProviderError
		if errors.As(err, &pe) {
			return "", err
		}
		// context cancellation surfaces as a plain error from backoff
		return "", errs.NewProviderError(providerOpenAI, 0, err)
	}

	c.logger.Debug("LLM request succeeded after %d attempts, total duration: %v", attempt, time.Since(start))
	return content, nil
}

func (c *OpenAIProvider) doComplete(ctx context.Context, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", backoff.Permanent(errs.NewProviderError(providerOpenAI, 0, err))
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.SetRequestURI(c.baseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return "", errs.NewProviderError(providerOpenAI, 0, fmt.Errorf("failed to send request: %w", err))
	}

	status := resp.StatusCode()
	respBody := resp.Body()
	if status != fasthttp.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = truncate(string(respBody), 512)
		}
		perr := errs.NewProviderError(providerOpenAI, status, errors.New(msg))
		if status == fasthttp.StatusTooManyRequests || status >= 500 {
			return "", perr
		}
		return "", backoff.Permanent(perr)
	}

	if !gjson.ValidBytes(respBody) {
		return "", backoff.Permanent(errs.NewProviderError(providerOpenAI, status, errors.New("response is not valid JSON")))
	}
	result := gjson.GetBytes(respBody, "choices.0.message.content")
	if !result.Exists() || result.Type != gjson.String {
		return "", backoff.Permanent(errs.NewProviderError(providerOpenAI, status, errors.New("response has no choices[0].message.content")))
	}
	return result.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
