package llm

import (
	"context"
	"time"

	"code-reviewer/internal/metrics"
)

type instrumentedProvider struct {
	inner   Provider
	metrics *metrics.Metrics
}

// Instrument wraps p so every call is counted and timed. A nil m returns p.
func Instrument(p Provider, m *metrics.Metrics) Provider {
	if m == nil {
		return p
	}
	return &instrumentedProvider{inner: p, metrics: m}
}

func (p *instrumentedProvider) Name() string {
	return p.inner.Name()
}

func (p *instrumentedProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	text, err := p.inner.Complete(ctx, systemPrompt, userPrompt)
	p.metrics.RecordProviderCall(ctx, p.inner.Name(), time.Since(start), err)
	return text, err
}
