package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"code-reviewer/internal/archive"
	"code-reviewer/internal/config"
	"code-reviewer/internal/database"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/metrics"
	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
	"code-reviewer/internal/utils"
	"code-reviewer/pkg/logger"
)

// DefaultAppName is used when an upload carries a blank application name.
const DefaultAppName = "MyApp"

// IngestResult describes one committed ingestion.
type IngestResult struct {
	AppID   int64  `json:"appId"`
	AppName string `json:"appName"`
	Files   int    `json:"files"`
	Skipped int    `json:"skipped"`
}

// IngestService 压缩包导入服务
type IngestService interface {
	// Ingest persists the application and every file of the archive at
	// archivePath in one transaction.
	Ingest(ctx context.Context, appName, archivePath string) (*IngestResult, error)
	// IngestUpload stages r to a temp file, ingests it and removes the file.
	IngestUpload(ctx context.Context, appName string, r io.Reader) (*IngestResult, error)
	// IngestDirectory zips dir on the fly and ingests the result.
	IngestDirectory(ctx context.Context, appName, dir string) (*IngestResult, error)
}

// IngestOptions 导入配置
type IngestOptions struct {
	Archive        archive.Config
	UploadDir      string
	DefaultAppName string
}

// IngestOptionsFromConfig 从应用配置构建导入配置
func IngestOptionsFromConfig(cfg *config.AppConfig) IngestOptions {
	return IngestOptions{
		Archive: archive.Config{
			MaxFileBytes:   cfg.Ingest.MaxFileBytes,
			IgnorePatterns: cfg.Ingest.IgnorePatterns,
		},
		UploadDir:      cfg.Ingest.UploadTmpDir,
		DefaultAppName: cfg.Server.DefaultAppName,
	}
}

type ingestService struct {
	db      database.DatabaseManager
	apps    repository.ApplicationRepository
	files   repository.FileRepository
	opts    IngestOptions
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewIngestService 创建导入服务
func NewIngestService(
	db database.DatabaseManager,
	apps repository.ApplicationRepository,
	files repository.FileRepository,
	opts IngestOptions,
	m *metrics.Metrics,
	logger logger.Logger,
) IngestService {
	if opts.DefaultAppName == "" {
		opts.DefaultAppName = DefaultAppName
	}
	if opts.UploadDir == "" {
		opts.UploadDir = utils.UploadTmpDir
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &ingestService{
		db:      db,
		apps:    apps,
		files:   files,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

func (s *ingestService) appName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.opts.DefaultAppName
	}
	return name
}

func (s *ingestService) Ingest(ctx context.Context, appName, archivePath string) (*IngestResult, error) {
	name := s.appName(appName)

	ing, err := archive.Open(archivePath, s.opts.Archive, s.logger)
	if err != nil {
		s.metrics.RecordIngest(ctx, 0, err)
		return nil, errs.NewIngestError(name, err)
	}
	defer ing.Close()

	result, err := s.persist(ctx, name, ing)
	if err != nil {
		s.metrics.RecordIngest(ctx, 0, err)
		return nil, errs.NewIngestError(name, err)
	}
	s.metrics.RecordIngest(ctx, result.Files, nil)
	return result, nil
}

// persist runs the single ingestion transaction. Nothing is visible to other
// connections unless every insert succeeds.
func (s *ingestService) persist(ctx context.Context, name string, ing *archive.Ingestor) (*IngestResult, error) {
	tx, err := s.db.BeginTransaction(ctx)
	if err != nil {
		return nil, errs.NewStorageError("begin ingest transaction", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("failed to rollback ingest of %q: %v", name, rbErr)
		}
	}()

	appID, err := s.apps.CreateTx(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	count := 0
	for entry := range ing.Entries() {
		file := &model.File{
			AppID:    appID,
			Name:     entry.Name,
			Folder:   entry.Folder,
			FullPath: entry.FullPath,
			Content:  entry.Content,
		}
		if err := s.files.CreateTx(ctx, tx, file); err != nil {
			s.logger.Error("ingest of %q aborted at %s: %v", name, entry.FullPath, err)
			return nil, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.NewStorageError("commit ingest transaction", err)
	}
	committed = true

	s.logger.Info("ingested application %q (id=%d): %d files stored, %d skipped", name, appID, count, ing.Skipped())
	return &IngestResult{
		AppID:   appID,
		AppName: name,
		Files:   count,
		Skipped: ing.Skipped(),
	}, nil
}

func (s *ingestService) IngestUpload(ctx context.Context, appName string, r io.Reader) (*IngestResult, error) {
	path, cleanup, err := utils.StageUpload(s.opts.UploadDir, r)
	defer cleanup()
	if err != nil {
		s.metrics.RecordIngest(ctx, 0, err)
		return nil, errs.NewIngestError(s.appName(appName), errs.NewArchiveError("stage upload", err))
	}
	s.logger.Debug("staged upload at %s", path)
	return s.Ingest(ctx, appName, path)
}

func (s *ingestService) IngestDirectory(ctx context.Context, appName, dir string) (*IngestResult, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(utils.ZipDirectory(dir, pw))
	}()
	result, err := s.IngestUpload(ctx, appName, pr)
	// unblocks the writer if staging stopped reading early
	_ = pr.Close()
	return result, err
}
