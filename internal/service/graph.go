package service

import (
	"context"
	"regexp"
	"strings"

	"code-reviewer/internal/llm"
	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
	"code-reviewer/pkg/logger"
)

// GraphView is what a caller renders for one file's dependency graph.
type GraphView struct {
	App      *model.Application `json:"app"`
	FileID   int64              `json:"fileId"`
	FileName string             `json:"fileName"`
	Script   string             `json:"script,omitempty"`
	Ready    bool               `json:"ready"`
}

// GraphService 依赖图脚本服务
type GraphService interface {
	// Generate asks the provider for a vis-network script and overwrites the
	// stored one.
	Generate(ctx context.Context, fileID int64) (string, error)
	// View only reads. Ready is false until a script has been generated.
	View(ctx context.Context, fileID int64) (*GraphView, error)
}

type graphService struct {
	apps     repository.ApplicationRepository
	files    repository.FileRepository
	provider llm.Provider
	source   *sourceReader
	logger   logger.Logger
}

// NewGraphService 创建依赖图服务
func NewGraphService(
	apps repository.ApplicationRepository,
	files repository.FileRepository,
	provider llm.Provider,
	logger logger.Logger,
) GraphService {
	return &graphService{
		apps:     apps,
		files:    files,
		provider: provider,
		source:   newSourceReader(logger),
		logger:   logger,
	}
}

func (s *graphService) Generate(ctx context.Context, fileID int64) (string, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}

	raw, err := s.provider.Complete(ctx, SystemPrompt, graphPrompt(s.source.text(file)))
	if err != nil {
		s.logger.Error("graph generation for file %d failed: %v", fileID, err)
		return "", err
	}

	script := ExtractCodeBlock(raw)
	if err := s.files.UpdateGraph(ctx, fileID, script); err != nil {
		return "", err
	}
	s.logger.Info("stored graph script for file %d (%d chars)", fileID, len(script))
	return script, nil
}

func (s *graphService) View(ctx context.Context, fileID int64) (*GraphView, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	app, err := s.apps.GetByID(ctx, file.AppID)
	if err != nil {
		return nil, err
	}

	view := &GraphView{
		App:      app,
		FileID:   file.ID,
		FileName: file.Name,
		Ready:    file.HasGraph(),
	}
	if view.Ready {
		view.Script = file.JSONGraph.V
	}
	return view, nil
}

var codeBlockPattern = regexp.MustCompile("(?s)```(?:javascript|js)[ \\t]*\\r?\\n(.*?)```")

// ExtractCodeBlock returns the interior of the first ```javascript or ```js
// fenced block in raw with only its leading and trailing whitespace trimmed,
// or raw unchanged when there is none.
func ExtractCodeBlock(raw string) string {
	m := codeBlockPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return strings.TrimSpace(m[1])
}
