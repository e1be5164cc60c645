package database

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"code-reviewer/internal/config"
	"code-reviewer/test/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, name string) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver:          config.DriverSQLite,
		DataDir:         t.TempDir(),
		DatabaseName:    name,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1800,
	}
}

func tableColumns(t *testing.T, m DatabaseManager, table string) map[string]bool {
	t.Helper()
	rows, err := m.GetDB().Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	require.NoError(t, err)
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid, notNull, pk int
		var name, dtype string
		var dfltValue interface{}
		require.NoError(t, rows.Scan(&cid, &name, &dtype, &notNull, &dfltValue, &pk))
		columns[name] = true
	}
	require.NoError(t, rows.Err())
	return columns
}

func TestSQLManager(t *testing.T) {
	logger := &mocks.MockLogger{}
	dbManager := NewSQLManager(newTestConfig(t, "test.db"), logger)

	t.Run("Initialize", func(t *testing.T) {
		require.NoError(t, dbManager.Initialize())
		assert.NotNil(t, dbManager.GetDB())
		assert.Equal(t, DialectSQLite, dbManager.Dialect())
		assert.Contains(t, logger.Messages("info"), "Database initialized successfully (driver=sqlite3)")
	})

	t.Run("TableSchemas", func(t *testing.T) {
		expected := map[string][]string{
			"applications":  {"id", "nama_aplikasi", "created_at"},
			"files":         {"id", "app_id", "nama_file", "nama_folder", "full_path", "content_file", "json_graph"},
			"file_metadata": {"file_id", "line_count", "imports", "sql_queries"},
			"analysis":      {"file_id", "analisa_fungsi", "analisa_relasi_file", "analisa_relasi_db", "created_at"},
			"app_summary":   {"app_id", "summary", "created_at"},
		}
		for table, cols := range expected {
			columns := tableColumns(t, dbManager, table)
			for _, col := range cols {
				assert.True(t, columns[col], "table %s missing column %s", table, col)
			}
		}
	})

	t.Run("MigrationsRecorded", func(t *testing.T) {
		var count int
		require.NoError(t, dbManager.GetDB().QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
		assert.Equal(t, 5, count)
	})

	t.Run("ForeignKeysEnforced", func(t *testing.T) {
		_, err := dbManager.GetDB().Exec(
			"INSERT INTO files (app_id, nama_file, full_path) VALUES (?, ?, ?)", 999999, "a.js", "a.js")
		assert.Error(t, err)
	})

	t.Run("BeginTransaction", func(t *testing.T) {
		tx, err := dbManager.BeginTransaction(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())
	})

	t.Run("ExecuteSQLFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.sql")
		require.NoError(t, os.WriteFile(path, []byte(`
-- seed one application
INSERT INTO applications (nama_aplikasi) VALUES ('seeded');
INSERT INTO applications (nama_aplikasi) VALUES ('seeded');
`), 0644))

		require.NoError(t, dbManager.ExecuteSQLFile(path))

		var count int
		require.NoError(t, dbManager.GetDB().QueryRow(
			"SELECT COUNT(*) FROM applications WHERE nama_aplikasi = 'seeded'").Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("ExecuteSQLFileRollsBack", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.sql")
		require.NoError(t, os.WriteFile(path, []byte(
			"INSERT INTO applications (nama_aplikasi) VALUES ('half');\nINSERT INTO nowhere VALUES (1);\n"), 0644))

		assert.Error(t, dbManager.ExecuteSQLFile(path))

		var count int
		require.NoError(t, dbManager.GetDB().QueryRow(
			"SELECT COUNT(*) FROM applications WHERE nama_aplikasi = 'half'").Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("ExecuteSQLFileRejectsOversizedLine", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "huge.sql")
		script := "INSERT INTO applications (nama_aplikasi) VALUES ('before');\n" +
			"INSERT INTO applications (nama_aplikasi) VALUES ('" + strings.Repeat("x", maxScriptLine) + "');\n"
		require.NoError(t, os.WriteFile(path, []byte(script), 0644))

		assert.Error(t, dbManager.ExecuteSQLFile(path))

		var count int
		require.NoError(t, dbManager.GetDB().QueryRow(
			"SELECT COUNT(*) FROM applications WHERE nama_aplikasi = 'before'").Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("ReinitializeIsIdempotent", func(t *testing.T) {
		require.NoError(t, dbManager.Close())
		require.NoError(t, dbManager.Initialize())
		var count int
		require.NoError(t, dbManager.GetDB().QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
		assert.Equal(t, 5, count)
	})

	t.Run("Close", func(t *testing.T) {
		require.NoError(t, dbManager.Close())
		assert.Error(t, dbManager.GetDB().Ping())
	})
}

func TestSQLManagerInvalidPath(t *testing.T) {
	cfg := newTestConfig(t, "test.db")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.DataDir = filepath.Join(blocker, "sub")

	err := NewSQLManager(cfg, &mocks.MockLogger{}).Initialize()
	assert.Error(t, err)
}

func TestSQLManagerConcurrentTransactions(t *testing.T) {
	dbManager := NewSQLManager(newTestConfig(t, "concurrency.db"), &mocks.MockLogger{})
	require.NoError(t, dbManager.Initialize())
	defer dbManager.Close()

	var wg sync.WaitGroup
	errCh := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tx, err := dbManager.BeginTransaction(context.Background())
			if err != nil {
				errCh <- err
				return
			}
			if _, err = tx.Exec("INSERT INTO applications (nama_aplikasi) VALUES (?)", fmt.Sprintf("app_%d", id)); err != nil {
				tx.Rollback()
				errCh <- err
				return
			}
			errCh <- tx.Commit()
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, dbManager.GetDB().QueryRow("SELECT COUNT(*) FROM applications").Scan(&count))
	assert.Equal(t, 5, count)
}

func TestSplitStatements(t *testing.T) {
	stmts, err := splitStatements(`
-- comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx ON a(id);
SELECT 1`)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (\n    id INTEGER\n)", stmts[0])
	assert.Equal(t, "CREATE INDEX idx ON a(id)", stmts[1])
	assert.Equal(t, "SELECT 1", stmts[2])
}

func TestSplitStatementsLineTooLong(t *testing.T) {
	_, err := splitStatements("SELECT '" + strings.Repeat("a", maxScriptLine+1) + "';")
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestParseMigrationName(t *testing.T) {
	v, base, ok := parseMigrationName("20250801000002_create_files_table.sql")
	assert.True(t, ok)
	assert.Equal(t, "20250801000002", v)
	assert.Equal(t, "20250801000002_create_files_table", base)

	_, _, ok = parseMigrationName("2025_create_files_table.sql")
	assert.False(t, ok)
	_, _, ok = parseMigrationName("20250801000002_alter_files_table.sql")
	assert.False(t, ok)
	_, _, ok = parseMigrationName("20250801000002_create_files.sql")
	assert.False(t, ok)
}
