package repository

import (
	"context"
	"database/sql"
	"errors"

	"code-reviewer/internal/database"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
	"code-reviewer/pkg/logger"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ApplicationRepository 应用数据访问层
type ApplicationRepository interface {
	// CreateTx 在事务中创建应用，返回新 ID
	CreateTx(ctx context.Context, tx DBTX, name string) (int64, error)
	// GetByID 根据ID获取应用
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	// List 按创建时间倒序列出所有应用
	List(ctx context.Context) ([]*model.Application, error)
}

type applicationRepository struct {
	db     database.DatabaseManager
	logger logger.Logger
}

// NewApplicationRepository 创建应用Repository
func NewApplicationRepository(db database.DatabaseManager, logger logger.Logger) ApplicationRepository {
	return &applicationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *applicationRepository) CreateTx(ctx context.Context, tx DBTX, name string) (int64, error) {
	result, err := tx.ExecContext(ctx, "INSERT INTO applications (nama_aplikasi) VALUES (?)", name)
	if err != nil {
		return 0, errs.NewStorageError("create application", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errs.NewStorageError("get application insert id", err)
	}
	return id, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	query := `
		SELECT id, nama_aplikasi, created_at
		FROM applications
		WHERE id = ?
	`

	var app model.Application
	err := r.db.GetDB().QueryRowContext(ctx, query, id).Scan(&app.ID, &app.Name, &app.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewRecordNotFoundErr("application", id)
		}
		return nil, errs.NewStorageError("get application by id", err)
	}
	return &app, nil
}

func (r *applicationRepository) List(ctx context.Context) ([]*model.Application, error) {
	query := `
		SELECT id, nama_aplikasi, created_at
		FROM applications
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, errs.NewStorageError("list applications", err)
	}
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		var app model.Application
		if err := rows.Scan(&app.ID, &app.Name, &app.CreatedAt); err != nil {
			return nil, errs.NewStorageError("scan application", err)
		}
		apps = append(apps, &app)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate applications", err)
	}
	return apps, nil
}
