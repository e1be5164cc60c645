package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"code-reviewer/internal/config"
	"code-reviewer/pkg/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL驱动
	_ "github.com/mattn/go-sqlite3"    // SQLite3驱动
)

// Dialect selects driver-specific SQL.
type Dialect string

const (
	DialectSQLite Dialect = config.DriverSQLite
	DialectMySQL  Dialect = config.DriverMySQL
)

// DatabaseManager 数据库管理器接口
type DatabaseManager interface {
	Initialize() error
	Close() error
	GetDB() *sql.DB
	Dialect() Dialect
	// BeginTransaction opens a transaction at read-committed or stronger.
	BeginTransaction(ctx context.Context) (*sql.Tx, error)
	// ExecuteSQLFile 执行外部 SQL 文件
	ExecuteSQLFile(filePath string) error
}

// SQLManager 数据库管理器实现，支持 SQLite 与 MySQL
type SQLManager struct {
	db       *sql.DB
	config   *config.DatabaseConfig
	dialect  Dialect
	logger   logger.Logger
	mutex    sync.RWMutex
	migrator *Migrator
}

// NewSQLManager 创建数据库管理器
func NewSQLManager(cfg *config.DatabaseConfig, logger logger.Logger) DatabaseManager {
	dialect := Dialect(cfg.Driver)
	if dialect == "" {
		dialect = DialectSQLite
	}
	return &SQLManager{
		config:  cfg,
		dialect: dialect,
		logger:  logger,
	}
}

// Initialize 初始化数据库连接和表结构
func (m *SQLManager) Initialize() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.dialect == DialectSQLite && m.config.DSN == "" {
		if err := os.MkdirAll(m.config.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	dsn, err := m.config.DataSourceName()
	if err != nil {
		return err
	}

	db, err := sql.Open(string(m.dialect), dsn)
	if err != nil {
		return err
	}

	// 配置连接池
	db.SetMaxOpenConns(m.config.MaxOpenConns)
	db.SetMaxIdleConns(m.config.MaxIdleConns)
	db.SetConnMaxLifetime(m.config.ConnLifetime())
	db.SetConnMaxIdleTime(m.config.ConnIdleTime())

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	m.db = db

	m.migrator = NewMigrator(m.db, m.dialect, m.logger)
	if err := m.migrator.AutoMigrate(); err != nil {
		return err
	}

	m.logger.Info("Database initialized successfully (driver=%s)", m.dialect)
	return nil
}

// Close 关闭数据库连接
func (m *SQLManager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// GetDB 获取数据库连接
func (m *SQLManager) GetDB() *sql.DB {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.db
}

func (m *SQLManager) Dialect() Dialect {
	return m.dialect
}

// BeginTransaction 开始事务. mattn/go-sqlite3 only accepts the default
// isolation level, which is already serializable.
func (m *SQLManager) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	var opts *sql.TxOptions
	if m.dialect == DialectMySQL {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return m.GetDB().BeginTx(ctx, opts)
}

// ExecuteSQLFile 执行外部 SQL 文件
func (m *SQLManager) ExecuteSQLFile(filePath string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.migrator == nil {
		return fmt.Errorf("migrator not initialized")
	}

	return m.migrator.ExecuteSQLFile(filePath)
}
