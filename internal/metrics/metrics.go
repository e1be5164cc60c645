// Package metrics exposes OpenTelemetry instruments through a Prometheus
// scrape endpoint.
//
// Metric names:
//
//	code_reviewer_llm_requests_total         provider calls by provider and outcome
//	code_reviewer_llm_request_duration_ms    provider call latency
//	code_reviewer_cache_lookups_total        analysis cache lookups by kind and result
//	code_reviewer_ingestions_total           archive ingestions by outcome
//	code_reviewer_ingested_files_total       files persisted by ingestion
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationScope = "code-reviewer"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultForced = "forced"
)

// Metrics holds the instruments recorded by services. The zero-overhead
// variant from NewNoop has a nil Handler.
type Metrics struct {
	handler  http.Handler
	shutdown func(context.Context) error

	llmRequests   metric.Int64Counter
	llmDuration   metric.Float64Histogram
	cacheLookups  metric.Int64Counter
	ingestions    metric.Int64Counter
	ingestedFiles metric.Int64Counter
}

// New builds a meter provider backed by a private Prometheus registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("metrics: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))

	m, err := newMetrics(mp.Meter(instrumentationScope))
	if err != nil {
		return nil, err
	}
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	m.shutdown = mp.Shutdown
	return m, nil
}

// NewNoop returns instruments that record nothing.
func NewNoop() *Metrics {
	m, _ := newMetrics(metricnoop.NewMeterProvider().Meter(instrumentationScope))
	m.shutdown = func(context.Context) error { return nil }
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.llmRequests, err = meter.Int64Counter("code_reviewer.llm.requests",
		metric.WithDescription("Language-model provider calls"),
	); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if m.llmDuration, err = meter.Float64Histogram("code_reviewer.llm.request.duration",
		metric.WithDescription("Language-model provider call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if m.cacheLookups, err = meter.Int64Counter("code_reviewer.cache.lookups",
		metric.WithDescription("Analysis cache lookups"),
	); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if m.ingestions, err = meter.Int64Counter("code_reviewer.ingestions",
		metric.WithDescription("Archive ingestions"),
	); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if m.ingestedFiles, err = meter.Int64Counter("code_reviewer.ingested.files",
		metric.WithDescription("Files persisted by archive ingestion"),
	); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return &m, nil
}

// Handler serves the Prometheus exposition format, or nil for NewNoop.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.shutdown(ctx)
}

func (m *Metrics) RecordProviderCall(ctx context.Context, provider string, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome(err)),
	)
	m.llmRequests.Add(ctx, 1, attrs)
	m.llmDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// RecordCacheLookup counts one analysis lookup; result is ResultHit,
// ResultMiss or ResultForced.
func (m *Metrics) RecordCacheLookup(ctx context.Context, kind, result string) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordIngest(ctx context.Context, files int, err error) {
	m.ingestions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	if err == nil {
		m.ingestedFiles.Add(ctx, int64(files))
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
