package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"code-reviewer/internal/errs"
	"code-reviewer/internal/llm"
	"code-reviewer/internal/metrics"
	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
	"code-reviewer/pkg/logger"
)

// NotAnalyzedMessage is the content of a StoredAnalysis that has no text yet.
const NotAnalyzedMessage = "Not analyzed yet. Run the analysis first."

// AnalysisService 单文件分析缓存服务
type AnalysisService interface {
	// GetOrCompute returns the cached analysis of kind for fileID, calling the
	// provider only on a miss or when force is set.
	GetOrCompute(ctx context.Context, fileID int64, kind model.AnalysisKind, force bool) (*model.AnalysisResult, error)
	// Stored reads one cached analysis without ever calling the provider.
	Stored(ctx context.Context, fileID int64, kind model.AnalysisKind) (*model.StoredAnalysis, error)
	// Overview returns every stored analysis of an application's files.
	Overview(ctx context.Context, appID int64) (*model.AnalysisOverview, error)
}

type analysisService struct {
	apps     repository.ApplicationRepository
	files    repository.FileRepository
	analyses repository.AnalysisRepository
	provider llm.Provider
	source   *sourceReader
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   logger.Logger
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(
	apps repository.ApplicationRepository,
	files repository.FileRepository,
	analyses repository.AnalysisRepository,
	provider llm.Provider,
	m *metrics.Metrics,
	logger logger.Logger,
) AnalysisService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &analysisService{
		apps:     apps,
		files:    files,
		analyses: analyses,
		provider: provider,
		source:   newSourceReader(logger),
		metrics:  m,
		logger:   logger,
	}
}

func (s *analysisService) GetOrCompute(ctx context.Context, fileID int64, kind model.AnalysisKind, force bool) (*model.AnalysisResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKind, kind)
	}

	if force {
		s.metrics.RecordCacheLookup(ctx, string(kind), metrics.ResultForced)
		text, err := s.compute(ctx, fileID, kind)
		if err != nil {
			return nil, err
		}
		return &model.AnalysisResult{Text: text}, nil
	}

	rec, err := s.analyses.Get(ctx, fileID)
	if err != nil && !errs.IsNotFound(err) {
		return nil, err
	}
	if err == nil {
		if cached := rec.Field(kind); cached.Valid {
			s.metrics.RecordCacheLookup(ctx, string(kind), metrics.ResultHit)
			return &model.AnalysisResult{Text: cached.V, FromCache: true}, nil
		}
	}
	s.metrics.RecordCacheLookup(ctx, string(kind), metrics.ResultMiss)

	// concurrent misses for the same slot share one provider call
	key := fmt.Sprintf("%d/%s", fileID, kind)
	text, shared, err := shareCompute(ctx, &s.group, key, func(ctx context.Context) (string, error) {
		return s.compute(ctx, fileID, kind)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("analysis %s shared between concurrent requests", key)
	}
	return &model.AnalysisResult{Text: text}, nil
}

// shareCompute runs fn once per key for all concurrent callers. fn gets a
// context that keeps ctx's values but not its cancellation, so one caller
// leaving does not fail the others; provider timeouts still bound it. Each
// caller stops waiting when its own ctx is done.
func shareCompute(ctx context.Context, group *singleflight.Group, key string,
	fn func(ctx context.Context) (string, error)) (string, bool, error) {
	ch := group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Shared, res.Err
		}
		return res.Val.(string), res.Shared, nil
	}
}

func (s *analysisService) compute(ctx context.Context, fileID int64, kind model.AnalysisKind) (string, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}

	prompt, err := analysisPrompt(kind, s.source.text(file))
	if err != nil {
		return "", err
	}

	text, err := s.provider.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		s.logger.Error("%s analysis of file %d failed: %v", kind, fileID, err)
		return "", err
	}

	if err := s.analyses.UpsertField(ctx, fileID, kind, text); err != nil {
		return "", err
	}
	s.logger.Info("stored %s analysis for file %d (%d chars)", kind, fileID, len(text))
	return text, nil
}

func (s *analysisService) Stored(ctx context.Context, fileID int64, kind model.AnalysisKind) (*model.StoredAnalysis, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKind, kind)
	}
	if _, err := s.files.GetByID(ctx, fileID); err != nil {
		return nil, err
	}

	out := &model.StoredAnalysis{
		FileID:  fileID,
		Kind:    kind,
		Title:   kind.Label(),
		Content: NotAnalyzedMessage,
	}
	rec, err := s.analyses.Get(ctx, fileID)
	if err != nil {
		if errs.IsNotFound(err) {
			return out, nil
		}
		return nil, err
	}
	if v := rec.Field(kind); v.Valid {
		out.Content = v.V
		out.Analyzed = true
	}
	return out, nil
}

func (s *analysisService) Overview(ctx context.Context, appID int64) (*model.AnalysisOverview, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	rows, err := s.files.List(ctx, repository.FileFilter{AppID: appID})
	if err != nil {
		return nil, err
	}

	files := make([]*model.FileAnalyses, 0, len(rows))
	for _, row := range rows {
		files = append(files, &model.FileAnalyses{
			ID:           row.ID,
			Name:         row.Name,
			FullPath:     row.FullPath,
			Function:     model.NullPtr(row.Analysis.FunctionSummary),
			FileRelation: model.NullPtr(row.Analysis.FileRelationSummary),
			DBRelation:   model.NullPtr(row.Analysis.DBRelationSummary),
			AnalyzedAt:   model.NullPtr(row.Analysis.CreatedAt),
		})
	}
	return &model.AnalysisOverview{App: app, Files: files}, nil
}
