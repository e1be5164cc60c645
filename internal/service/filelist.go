package service

import (
	"context"
	"strings"

	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
	"code-reviewer/pkg/logger"
)

const (
	DefaultPreviewWords = 50
	DefaultPageSize     = 25
	MaxPageSize         = 200

	previewEllipsis = " …"
)

// FileListQuery selects one page of an application's files.
type FileListQuery struct {
	AppID    int64
	Page     int
	PageSize int
	Search   string
}

// FileListResult 文件分页结果
type FileListResult struct {
	App        *model.Application   `json:"app"`
	Items      []*model.FileSummary `json:"items"`
	Pagination model.Pagination     `json:"pagination"`
	Search     string               `json:"search,omitempty"`
}

// FileListService 文件列表查询服务
type FileListService interface {
	List(ctx context.Context, query FileListQuery) (*FileListResult, error)
	// ListApplications returns every application, newest first.
	ListApplications(ctx context.Context) ([]*model.Application, error)
}

// FileListOptions 列表配置
type FileListOptions struct {
	PreviewWords int
	PageSize     int
	MaxPageSize  int
}

type fileListService struct {
	apps   repository.ApplicationRepository
	files  repository.FileRepository
	opts   FileListOptions
	logger logger.Logger
}

// NewFileListService 创建文件列表服务
func NewFileListService(
	apps repository.ApplicationRepository,
	files repository.FileRepository,
	opts FileListOptions,
	logger logger.Logger,
) FileListService {
	if opts.PreviewWords <= 0 {
		opts.PreviewWords = DefaultPreviewWords
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	return &fileListService{
		apps:   apps,
		files:  files,
		opts:   opts,
		logger: logger,
	}
}

func (s *fileListService) pageSize(requested int) int {
	if requested <= 0 {
		return s.opts.PageSize
	}
	return min(requested, s.opts.MaxPageSize)
}

func (s *fileListService) List(ctx context.Context, query FileListQuery) (*FileListResult, error) {
	app, err := s.apps.GetByID(ctx, query.AppID)
	if err != nil {
		return nil, err
	}

	search := strings.TrimSpace(query.Search)
	filter := repository.FileFilter{AppID: query.AppID, Search: search}
	total, err := s.files.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := model.NewPagination(query.Page, s.pageSize(query.PageSize), total)
	filter.Limit = page.PageSize
	filter.Offset = page.Offset()

	rows, err := s.files.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*model.FileSummary, 0, len(rows))
	for i, row := range rows {
		items = append(items, s.summarize(row, page.Offset()+i+1))
	}
	page.SetRange(len(items))

	return &FileListResult{
		App:        app,
		Items:      items,
		Pagination: page,
		Search:     search,
	}, nil
}

func (s *fileListService) summarize(row *model.FileRow, rowNumber int) *model.FileSummary {
	return &model.FileSummary{
		RowNumber:           rowNumber,
		ID:                  row.ID,
		Name:                row.Name,
		Folder:              row.Folder.V,
		FullPath:            row.FullPath,
		LineCount:           model.NullPtr(row.LineCount),
		FunctionPreview:     TruncateWords(row.Analysis.FunctionSummary.V, s.opts.PreviewWords),
		FileRelationPreview: TruncateWords(row.Analysis.FileRelationSummary.V, s.opts.PreviewWords),
		DBRelationPreview:   TruncateWords(row.Analysis.DBRelationSummary.V, s.opts.PreviewWords),
		HasGraph:            row.HasGraph(),
	}
}

func (s *fileListService) ListApplications(ctx context.Context) ([]*model.Application, error) {
	return s.apps.List(ctx)
}

// TruncateWords keeps the first limit whitespace-separated words joined by
// single spaces and appends " …". Text with at most limit words is returned
// unchanged.
func TruncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ") + previewEllipsis
}
