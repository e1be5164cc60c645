package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"code-reviewer/internal/errs"
	"code-reviewer/internal/llm"
	"code-reviewer/internal/metrics"
	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
	"code-reviewer/pkg/logger"
)

// DefaultSnippetChars is how many characters of each file go into the
// application summary payload.
const DefaultSnippetChars = 2000

const truncatedMarker = "...\n[truncated]"

// summaryKind labels app summary lookups in metrics.
const summaryKind = "app_summary"

// SummaryService 应用整体分析服务
type SummaryService interface {
	GetOrCompute(ctx context.Context, appID int64, force bool) (*model.AnalysisResult, error)
	// BuildPayload renders the provider input for appID without calling it.
	BuildPayload(ctx context.Context, appID int64) (string, error)
}

type summaryService struct {
	apps         repository.ApplicationRepository
	files        repository.FileRepository
	analyses     repository.AnalysisRepository
	provider     llm.Provider
	snippetChars int
	group        singleflight.Group
	metrics      *metrics.Metrics
	logger       logger.Logger
}

// NewSummaryService 创建应用汇总服务
func NewSummaryService(
	apps repository.ApplicationRepository,
	files repository.FileRepository,
	analyses repository.AnalysisRepository,
	provider llm.Provider,
	snippetChars int,
	m *metrics.Metrics,
	logger logger.Logger,
) SummaryService {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &summaryService{
		apps:         apps,
		files:        files,
		analyses:     analyses,
		provider:     provider,
		snippetChars: snippetChars,
		metrics:      m,
		logger:       logger,
	}
}

func (s *summaryService) GetOrCompute(ctx context.Context, appID int64, force bool) (*model.AnalysisResult, error) {
	if _, err := s.apps.GetByID(ctx, appID); err != nil {
		return nil, err
	}

	if force {
		s.metrics.RecordCacheLookup(ctx, summaryKind, metrics.ResultForced)
		text, err := s.compute(ctx, appID)
		if err != nil {
			return nil, err
		}
		return &model.AnalysisResult{Text: text}, nil
	}

	stored, err := s.analyses.GetSummary(ctx, appID)
	if err != nil && !errs.IsNotFound(err) {
		return nil, err
	}
	if err == nil && stored.Summary.Valid {
		s.metrics.RecordCacheLookup(ctx, summaryKind, metrics.ResultHit)
		return &model.AnalysisResult{Text: stored.Summary.V, FromCache: true}, nil
	}
	s.metrics.RecordCacheLookup(ctx, summaryKind, metrics.ResultMiss)

	text, _, err := shareCompute(ctx, &s.group, strconv.FormatInt(appID, 10), func(ctx context.Context) (string, error) {
		return s.compute(ctx, appID)
	})
	if err != nil {
		return nil, err
	}
	return &model.AnalysisResult{Text: text}, nil
}

func (s *summaryService) compute(ctx context.Context, appID int64) (string, error) {
	payload, err := s.BuildPayload(ctx, appID)
	if err != nil {
		return "", err
	}

	text, err := s.provider.Complete(ctx, SystemPrompt, summaryPrompt(payload))
	if err != nil {
		s.logger.Error("summary of application %d failed: %v", appID, err)
		return "", err
	}

	if err := s.analyses.UpsertSummary(ctx, appID, text); err != nil {
		return "", err
	}
	s.logger.Info("stored summary for application %d (%d chars)", appID, len(text))
	return text, nil
}

func (s *summaryService) BuildPayload(ctx context.Context, appID int64) (string, error) {
	sources, err := s.files.ListSummarySources(ctx, appID)
	if err != nil {
		return "", err
	}
	return BuildSummaryPayload(sources, s.snippetChars), nil
}

// BuildSummaryPayload renders one block per source, in the given order:
//
//	- <full_path> | lines=<n or unknown>
//	imports:
//	<imports>
//	sql:
//	<sql_queries>
//	content:
//	<snippet>
//
// followed by a blank line.
func BuildSummaryPayload(sources []*model.SummarySource, snippetChars int) string {
	var b strings.Builder
	for _, src := range sources {
		lines := "unknown"
		if src.LineCount.Valid {
			lines = strconv.FormatInt(src.LineCount.V, 10)
		}
		fmt.Fprintf(&b, "- %s | lines=%s\nimports:\n%s\nsql:\n%s\ncontent:\n%s\n\n",
			src.FullPath,
			lines,
			src.Imports.V,
			src.SQLQueries.V,
			snippet(src.Content.V, snippetChars),
		)
	}
	return b.String()
}

// snippet keeps the first n characters of s and marks the cut.
func snippet(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + truncatedMarker
		}
		count++
	}
	return s
}
