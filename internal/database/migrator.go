package database

import (
	"bufio"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"code-reviewer/pkg/logger"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationFS embed.FS

// Migration 迁移结构体
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Migrator 数据库迁移器
type Migrator struct {
	db      *sql.DB
	logger  logger.Logger
	dialect Dialect
	source  fs.FS
}

// NewMigrator 创建新的迁移器，迁移文件按方言从嵌入目录读取
func NewMigrator(db *sql.DB, dialect Dialect, logger logger.Logger) *Migrator {
	dir := "migrations/sqlite"
	if dialect == DialectMySQL {
		dir = "migrations/mysql"
	}
	source, err := fs.Sub(migrationFS, dir)
	if err != nil {
		// dir is a compile-time constant covered by the embed pattern
		panic(err)
	}
	return &Migrator{
		db:      db,
		logger:  logger,
		dialect: dialect,
		source:  source,
	}
}

// CreateMigrationTable 创建迁移版本表
func (m *Migrator) CreateMigrationTable() error {
	sql := `
		CREATE TABLE IF NOT EXISTS migrations (
			version VARCHAR(255) PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`

	if _, err := m.db.Exec(sql); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	m.logger.Debug("Migrations table ready")
	return nil
}

// GetAppliedMigrations 获取已应用的迁移
func (m *Migrator) GetAppliedMigrations() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT version FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %v", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %v", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// GetAvailableMigrations 获取可用的迁移文件
func (m *Migrator) GetAvailableMigrations() ([]Migration, error) {
	files, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %v", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		version, baseName, ok := parseMigrationName(name)
		if !ok {
			continue
		}

		content, err := fs.ReadFile(m.source, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded migration file %s: %v", name, err)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: baseName,
			SQL:         string(content),
		})
	}

	// 按版本号排序（时间戳）
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationName 解析文件名格式: 20250801000001_create_applications_table.sql
func parseMigrationName(name string) (version, baseName string, ok bool) {
	if !strings.HasSuffix(name, ".sql") {
		return "", "", false
	}
	baseName = strings.TrimSuffix(name, ".sql")

	parts := strings.Split(baseName, "_")
	if len(parts) < 4 {
		return "", "", false
	}

	// 第一部分是时间戳版本号 (14位数字)
	version = parts[0]
	if len(version) != 14 {
		return "", "", false
	}

	switch parts[1] {
	case "create", "update", "delete":
	default:
		return "", "", false
	}
	return version, baseName, true
}

// ApplyMigration 应用单个迁移
func (m *Migrator) ApplyMigration(migration Migration) (err error) {
	m.logger.Info("Applying migration %s", migration.Description)

	stmts, err := splitStatements(migration.SQL)
	if err != nil {
		return fmt.Errorf("failed to parse migration SQL: %v", err)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range stmts {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %v", err)
		}
	}

	_, err = tx.Exec(
		"INSERT INTO migrations (version, description, applied_at) VALUES (?, ?, ?)",
		migration.Version, migration.Description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration version: %v", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	m.logger.Info("Migration %s applied successfully", migration.Description)
	return nil
}

// AutoMigrate 自动执行所有未应用的迁移
func (m *Migrator) AutoMigrate() error {
	if err := m.CreateMigrationTable(); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	available, err := m.GetAvailableMigrations()
	if err != nil {
		return err
	}

	for _, migration := range available {
		if !applied[migration.Version] {
			if err := m.ApplyMigration(migration); err != nil {
				return fmt.Errorf("failed to apply migration %s: %v", migration.Version, err)
			}
		}
	}

	m.logger.Info("Auto migration completed successfully (%s)", m.dialect)
	return nil
}

// ExecuteSQLFile 执行外部 SQL 文件
func (m *Migrator) ExecuteSQLFile(filePath string) (err error) {
	m.logger.Info("Executing SQL file: %s", filePath)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read SQL file %s: %v", filePath, err)
	}

	stmts, err := splitStatements(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse SQL file %s: %v", filePath, err)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range stmts {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute SQL from file %s: %v", filePath, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	m.logger.Info("SQL file executed successfully: %s", filePath)
	return nil
}

// maxScriptLine is the longest single line splitStatements accepts.
const maxScriptLine = 4 * 1024 * 1024

// splitStatements cuts a script at semicolons that end a line. Lines starting
// with "--" are dropped. The MySQL driver rejects multi-statement Exec unless
// multiStatements is enabled, so every statement runs on its own.
func splitStatements(script string) ([]string, error) {
	var (
		stmts   []string
		current strings.Builder
	)
	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Buffer(make([]byte, 0, 64*1024), maxScriptLine)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";"); stmt != "" {
				stmts = append(stmts, stmt)
			}
			current.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, strings.TrimSuffix(tail, ";"))
	}
	return stmts, nil
}
