package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"code-reviewer/internal/database"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
	"code-reviewer/pkg/logger"
)

// FileFilter selects a window of one application's files.
type FileFilter struct {
	AppID  int64
	Search string // case-insensitive substring of name, folder or full path
	Limit  int    // <= 0 means no limit
	Offset int
}

// FileRepository 文件数据访问层
type FileRepository interface {
	// CreateTx 在事务中插入文件记录，成功后回填 ID
	CreateTx(ctx context.Context, tx DBTX, file *model.File) error
	GetByID(ctx context.Context, id int64) (*model.File, error)
	// List returns files joined with metadata and stored analyses, id ascending.
	List(ctx context.Context, filter FileFilter) ([]*model.FileRow, error)
	Count(ctx context.Context, filter FileFilter) (int, error)
	// UpdateGraph 覆盖保存生成的图脚本
	UpdateGraph(ctx context.Context, id int64, script string) error
	// ListSummarySources 按 ID 顺序返回汇总分析所需的文件信息
	ListSummarySources(ctx context.Context, appID int64) ([]*model.SummarySource, error)
}

type fileRepository struct {
	db     database.DatabaseManager
	logger logger.Logger
}

// NewFileRepository 创建文件Repository
func NewFileRepository(db database.DatabaseManager, logger logger.Logger) FileRepository {
	return &fileRepository{
		db:     db,
		logger: logger,
	}
}

func (r *fileRepository) CreateTx(ctx context.Context, tx DBTX, file *model.File) error {
	query := `
		INSERT INTO files (app_id, nama_file, nama_folder, full_path, content_file)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		file.AppID,
		file.Name,
		file.Folder,
		file.FullPath,
		file.Content,
	)
	if err != nil {
		return errs.NewStorageError("create file "+file.FullPath, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errs.NewStorageError("get file insert id", err)
	}
	file.ID = id
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, id int64) (*model.File, error) {
	query := `
		SELECT id, app_id, nama_file, nama_folder, full_path, content_file, json_graph
		FROM files
		WHERE id = ?
	`

	var f model.File
	err := r.db.GetDB().QueryRowContext(ctx, query, id).Scan(
		&f.ID,
		&f.AppID,
		&f.Name,
		&f.Folder,
		&f.FullPath,
		&f.Content,
		&f.JSONGraph,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewRecordNotFoundErr("file", id)
		}
		return nil, errs.NewStorageError("get file by id", err)
	}
	return &f, nil
}

const fileRowColumns = `
		SELECT f.id, f.app_id, f.nama_file, f.nama_folder, f.full_path, f.json_graph,
			m.line_count,
			a.analisa_fungsi, a.analisa_relasi_file, a.analisa_relasi_db, a.created_at
		FROM files f
		LEFT JOIN file_metadata m ON m.file_id = f.id
		LEFT JOIN analysis a ON a.file_id = f.id
`

// searchClause is appended verbatim; the term itself is always bound.
const searchClause = `
		AND (LOWER(f.nama_file) LIKE LOWER(?) ESCAPE '!'
			OR LOWER(COALESCE(f.nama_folder, '')) LIKE LOWER(?) ESCAPE '!'
			OR LOWER(f.full_path) LIKE LOWER(?) ESCAPE '!')
`

func whereClause(filter FileFilter) (string, []any) {
	clause := "WHERE f.app_id = ?"
	args := []any{filter.AppID}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		clause += searchClause
		args = append(args, pattern, pattern, pattern)
	}
	return clause, args
}

// escapeLike neutralises LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func (r *fileRepository) List(ctx context.Context, filter FileFilter) ([]*model.FileRow, error) {
	where, args := whereClause(filter)
	query := fileRowColumns + where + " ORDER BY f.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("list files", err)
	}
	defer rows.Close()

	var out []*model.FileRow
	for rows.Next() {
		var row model.FileRow
		err := rows.Scan(
			&row.ID,
			&row.AppID,
			&row.Name,
			&row.Folder,
			&row.FullPath,
			&row.JSONGraph,
			&row.LineCount,
			&row.Analysis.FunctionSummary,
			&row.Analysis.FileRelationSummary,
			&row.Analysis.DBRelationSummary,
			&row.Analysis.CreatedAt,
		)
		if err != nil {
			return nil, errs.NewStorageError("scan file row", err)
		}
		row.Analysis.FileID = row.ID
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate files", err)
	}
	return out, nil
}

func (r *fileRepository) Count(ctx context.Context, filter FileFilter) (int, error) {
	where, args := whereClause(filter)
	query := "SELECT COUNT(*) FROM files f " + where

	var total int
	if err := r.db.GetDB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, errs.NewStorageError("count files", err)
	}
	return total, nil
}

func (r *fileRepository) UpdateGraph(ctx context.Context, id int64, script string) error {
	_, err := r.db.GetDB().ExecContext(ctx, "UPDATE files SET json_graph = ? WHERE id = ?", script, id)
	if err != nil {
		return errs.NewStorageError("update file graph", err)
	}
	return nil
}

func (r *fileRepository) ListSummarySources(ctx context.Context, appID int64) ([]*model.SummarySource, error) {
	query := `
		SELECT f.full_path, m.line_count, m.imports, m.sql_queries, f.content_file
		FROM files f
		LEFT JOIN file_metadata m ON m.file_id = f.id
		WHERE f.app_id = ?
		ORDER BY f.id ASC
	`

	rows, err := r.db.GetDB().QueryContext(ctx, query, appID)
	if err != nil {
		return nil, errs.NewStorageError("list summary sources", err)
	}
	defer rows.Close()

	var out []*model.SummarySource
	for rows.Next() {
		var s model.SummarySource
		if err := rows.Scan(&s.FullPath, &s.LineCount, &s.Imports, &s.SQLQueries, &s.Content); err != nil {
			return nil, errs.NewStorageError("scan summary source", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate summary sources", err)
	}
	return out, nil
}
