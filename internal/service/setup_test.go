package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"code-reviewer/internal/config"
	"code-reviewer/internal/database"
	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
	"code-reviewer/test/mocks"
)

type testEnv struct {
	db       database.DatabaseManager
	apps     repository.ApplicationRepository
	files    repository.FileRepository
	analyses repository.AnalysisRepository
	logger   *mocks.MockLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := &mocks.MockLogger{}
	db := database.NewSQLManager(&config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DataDir:      t.TempDir(),
		DatabaseName: "test-service.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}, logger)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })

	return &testEnv{
		db:       db,
		apps:     repository.NewApplicationRepository(db, logger),
		files:    repository.NewFileRepository(db, logger),
		analyses: repository.NewAnalysisRepository(db, logger),
		logger:   logger,
	}
}

// seed stores an application with the given files and returns the file ids.
func (e *testEnv) seed(t *testing.T, name string, files ...*model.File) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := e.db.BeginTransaction(ctx)
	require.NoError(t, err)
	appID, err := e.apps.CreateTx(ctx, tx, name)
	require.NoError(t, err)

	ids := make([]int64, 0, len(files))
	for _, f := range files {
		f.AppID = appID
		require.NoError(t, e.files.CreateTx(ctx, tx, f))
		ids = append(ids, f.ID)
	}
	require.NoError(t, tx.Commit())
	return appID, ids
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.GetDB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func nullText(s string) sql.Null[string] {
	return sql.Null[string]{V: s, Valid: true}
}

type zipEntry struct {
	name    string
	content string
}

// writeZip builds an archive; names ending in "/" become directory entries.
func writeZip(t *testing.T, entries ...zipEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}
