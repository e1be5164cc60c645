package main

import (
	"fmt"
	"os"

	"code-reviewer/internal/config"
	"code-reviewer/internal/database"
	"code-reviewer/internal/llm"
	"code-reviewer/internal/metrics"
	"code-reviewer/internal/repository"
	"code-reviewer/internal/service"
	"code-reviewer/internal/utils"
	"code-reviewer/pkg/logger"
)

// runtimeDeps is everything the subcommands share.
type runtimeDeps struct {
	cfg      *config.AppConfig
	logger   logger.Logger
	db       database.DatabaseManager
	apps     repository.ApplicationRepository
	files    repository.FileRepository
	analyses repository.AnalysisRepository
}

// initDirs creates the data directories and points the path defaults at
// them. It must run before config.Load reads those defaults.
func initDirs() error {
	rootPath := homeDir
	if rootPath == "" {
		var err error
		if rootPath, err = utils.GetRootDir(appName); err != nil {
			return fmt.Errorf("failed to get root directory: %w", err)
		}
	} else {
		if err := os.MkdirAll(rootPath, 0755); err != nil {
			return fmt.Errorf("failed to create root directory: %w", err)
		}
		utils.AppRootDir = rootPath
	}

	if _, err := utils.GetLogDir(rootPath); err != nil {
		return fmt.Errorf("failed to get log directory: %w", err)
	}
	if _, err := utils.GetUploadTmpDir(rootPath); err != nil {
		return fmt.Errorf("failed to get upload temporary directory: %w", err)
	}
	cachePath, err := utils.GetCacheDir(rootPath)
	if err != nil {
		return fmt.Errorf("failed to get cache directory: %w", err)
	}
	if _, err := utils.GetCacheDbDir(cachePath); err != nil {
		return fmt.Errorf("failed to get cache db directory: %w", err)
	}
	return nil
}

func loadConfig() (*config.AppConfig, error) {
	if err := initDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	for _, dir := range []string{cfg.Log.Dir, cfg.Ingest.UploadTmpDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return cfg, nil
}

// bootstrap loads configuration, opens the database and runs migrations.
// console selects a stderr logger instead of the rotating file logger.
func bootstrap(console bool) (*runtimeDeps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var appLogger logger.Logger
	if console {
		appLogger = logger.NewConsoleLogger(cfg.Log.Level)
	} else {
		appLogger, err = logger.NewLogger(cfg.Log.Dir, cfg.Log.Level, appName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging system: %w", err)
		}
	}

	info := config.GetAppInfo()
	appLogger.Info("OS: %s, Arch: %s, App: %s, Version: %s, Starting...", info.OSName, info.ArchName, info.AppName, info.Version)

	dbManager := database.NewSQLManager(&cfg.Database, appLogger)
	if err := dbManager.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	return &runtimeDeps{
		cfg:      cfg,
		logger:   appLogger,
		db:       dbManager,
		apps:     repository.NewApplicationRepository(dbManager, appLogger),
		files:    repository.NewFileRepository(dbManager, appLogger),
		analyses: repository.NewAnalysisRepository(dbManager, appLogger),
	}, nil
}

func (d *runtimeDeps) close() {
	if err := d.db.Close(); err != nil {
		d.logger.Error("failed to close database: %v", err)
	}
}

// services builds the service layer. m may be nil.
type services struct {
	ingest   service.IngestService
	analysis service.AnalysisService
	summary  service.SummaryService
	files    service.FileListService
	graph    service.GraphService
}

func (d *runtimeDeps) services(m *metrics.Metrics) (*services, error) {
	provider, err := llm.NewProvider(&d.cfg.LLM, d.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm provider: %w", err)
	}
	provider = llm.Instrument(provider, m)
	if d.cfg.LLM.APIKey == "" {
		d.logger.Warn("no API key configured for provider %s, analyses will fail until one is set", provider.Name())
	}

	return &services{
		ingest:   service.NewIngestService(d.db, d.apps, d.files, service.IngestOptionsFromConfig(d.cfg), m, d.logger),
		analysis: service.NewAnalysisService(d.apps, d.files, d.analyses, provider, m, d.logger),
		summary:  service.NewSummaryService(d.apps, d.files, d.analyses, provider, d.cfg.Analysis.SnippetChars, m, d.logger),
		files: service.NewFileListService(d.apps, d.files, service.FileListOptions{
			PreviewWords: d.cfg.Analysis.PreviewWords,
			PageSize:     d.cfg.Analysis.PageSize,
			MaxPageSize:  d.cfg.Analysis.MaxPageSize,
		}, d.logger),
		graph: service.NewGraphService(d.apps, d.files, provider, d.logger),
	}, nil
}
