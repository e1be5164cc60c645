package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"code-reviewer/internal/database"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
	"code-reviewer/pkg/logger"
)

// analysisUpserts holds one fully written statement per dialect and kind.
// Each writes a single analysis column plus the record timestamp and leaves
// the other columns of an existing row untouched.
var analysisUpserts = map[database.Dialect]map[model.AnalysisKind]string{
	database.DialectSQLite: {
		model.KindFunction: `
			INSERT INTO analysis (file_id, analisa_fungsi, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(file_id) DO UPDATE SET analisa_fungsi = excluded.analisa_fungsi, created_at = CURRENT_TIMESTAMP`,
		model.KindFileRelation: `
			INSERT INTO analysis (file_id, analisa_relasi_file, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(file_id) DO UPDATE SET analisa_relasi_file = excluded.analisa_relasi_file, created_at = CURRENT_TIMESTAMP`,
		model.KindDBRelation: `
			INSERT INTO analysis (file_id, analisa_relasi_db, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(file_id) DO UPDATE SET analisa_relasi_db = excluded.analisa_relasi_db, created_at = CURRENT_TIMESTAMP`,
	},
	database.DialectMySQL: {
		model.KindFunction: `
			INSERT INTO analysis (file_id, analisa_fungsi, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON DUPLICATE KEY UPDATE analisa_fungsi = VALUES(analisa_fungsi), created_at = CURRENT_TIMESTAMP`,
		model.KindFileRelation: `
			INSERT INTO analysis (file_id, analisa_relasi_file, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON DUPLICATE KEY UPDATE analisa_relasi_file = VALUES(analisa_relasi_file), created_at = CURRENT_TIMESTAMP`,
		model.KindDBRelation: `
			INSERT INTO analysis (file_id, analisa_relasi_db, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON DUPLICATE KEY UPDATE analisa_relasi_db = VALUES(analisa_relasi_db), created_at = CURRENT_TIMESTAMP`,
	},
}

var summaryUpserts = map[database.Dialect]string{
	database.DialectSQLite: `
		INSERT INTO app_summary (app_id, summary, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(app_id) DO UPDATE SET summary = excluded.summary, created_at = CURRENT_TIMESTAMP`,
	database.DialectMySQL: `
		INSERT INTO app_summary (app_id, summary, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE summary = VALUES(summary), created_at = CURRENT_TIMESTAMP`,
}

// AnalysisRepository 分析缓存数据访问层
type AnalysisRepository interface {
	// Get returns the stored record, or an error matching errs.ErrRecordNotFound.
	Get(ctx context.Context, fileID int64) (*model.AnalysisRecord, error)
	// UpsertField writes exactly one kind's column for fileID.
	UpsertField(ctx context.Context, fileID int64, kind model.AnalysisKind, text string) error
	GetSummary(ctx context.Context, appID int64) (*model.AppSummary, error)
	UpsertSummary(ctx context.Context, appID int64, text string) error
}

type analysisRepository struct {
	db     database.DatabaseManager
	logger logger.Logger
}

// NewAnalysisRepository 创建分析Repository
func NewAnalysisRepository(db database.DatabaseManager, logger logger.Logger) AnalysisRepository {
	return &analysisRepository{
		db:     db,
		logger: logger,
	}
}

func (r *analysisRepository) Get(ctx context.Context, fileID int64) (*model.AnalysisRecord, error) {
	query := `
		SELECT file_id, analisa_fungsi, analisa_relasi_file, analisa_relasi_db, created_at
		FROM analysis
		WHERE file_id = ?
	`

	var rec model.AnalysisRecord
	err := r.db.GetDB().QueryRowContext(ctx, query, fileID).Scan(
		&rec.FileID,
		&rec.FunctionSummary,
		&rec.FileRelationSummary,
		&rec.DBRelationSummary,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewRecordNotFoundErr("analysis", fileID)
		}
		return nil, errs.NewStorageError("get analysis", err)
	}
	return &rec, nil
}

func (r *analysisRepository) UpsertField(ctx context.Context, fileID int64, kind model.AnalysisKind, text string) error {
	stmt, ok := analysisUpserts[r.db.Dialect()][kind]
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownKind, kind)
	}
	if _, err := r.db.GetDB().ExecContext(ctx, stmt, fileID, text); err != nil {
		return errs.NewStorageError("upsert analysis "+string(kind), err)
	}
	return nil
}

func (r *analysisRepository) GetSummary(ctx context.Context, appID int64) (*model.AppSummary, error) {
	query := `
		SELECT app_id, summary, created_at
		FROM app_summary
		WHERE app_id = ?
	`

	var s model.AppSummary
	err := r.db.GetDB().QueryRowContext(ctx, query, appID).Scan(&s.AppID, &s.Summary, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewRecordNotFoundErr("app summary", appID)
		}
		return nil, errs.NewStorageError("get app summary", err)
	}
	return &s, nil
}

func (r *analysisRepository) UpsertSummary(ctx context.Context, appID int64, text string) error {
	stmt, ok := summaryUpserts[r.db.Dialect()]
	if !ok {
		return errs.NewStorageError("upsert app summary", fmt.Errorf("unsupported dialect %s", r.db.Dialect()))
	}
	if _, err := r.db.GetDB().ExecContext(ctx, stmt, appID, text); err != nil {
		return errs.NewStorageError("upsert app summary", err)
	}
	return nil
}
