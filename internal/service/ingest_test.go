package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-reviewer/internal/archive"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
	"code-reviewer/internal/repository"
)

type failingFileRepo struct {
	repository.FileRepository
	failAt int
	calls  int
}

func (r *failingFileRepo) CreateTx(ctx context.Context, tx repository.DBTX, file *model.File) error {
	r.calls++
	if r.calls == r.failAt {
		return errs.NewStorageError("create file "+file.FullPath, errors.New("disk full"))
	}
	return r.FileRepository.CreateTx(ctx, tx, file)
}

func newTestIngest(env *testEnv, files repository.FileRepository, uploadDir string) IngestService {
	return NewIngestService(env.db, env.apps, files, IngestOptions{
		Archive:   archive.Config{MaxFileBytes: 16},
		UploadDir: uploadDir,
	}, nil, env.logger)
}

func TestIngest(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestIngest(env, env.files, t.TempDir())
	ctx := context.Background()

	path := writeZip(t,
		zipEntry{name: "src/"},
		zipEntry{name: "src/app.js", content: "console.log(1)"},
		zipEntry{name: "README.md", content: "# demo"},
		zipEntry{name: "empty.txt"},
		zipEntry{name: "big.txt", content: strings.Repeat("x", 40)},
	)

	result, err := svc.Ingest(ctx, "demo", path)
	require.NoError(t, err)
	assert.Equal(t, "demo", result.AppName)
	assert.Equal(t, 4, result.Files)
	assert.Equal(t, 0, result.Skipped)

	app, err := env.apps.GetByID(ctx, result.AppID)
	require.NoError(t, err)
	assert.Equal(t, "demo", app.Name)

	rows, err := env.files.List(ctx, repository.FileFilter{AppID: result.AppID})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byPath := map[string]*model.FileRow{}
	for _, row := range rows {
		byPath[row.FullPath] = row
	}

	appJS := byPath["src/app.js"]
	require.NotNil(t, appJS)
	assert.Equal(t, "app.js", appJS.Name)
	assert.Equal(t, nullText("src"), appJS.Folder)

	readme, err := env.files.GetByID(ctx, byPath["README.md"].ID)
	require.NoError(t, err)
	assert.False(t, readme.Folder.Valid)
	assert.Equal(t, "# demo", readme.Content.V)

	empty, err := env.files.GetByID(ctx, byPath["empty.txt"].ID)
	require.NoError(t, err)
	assert.False(t, empty.Content.Valid)

	big, err := env.files.GetByID(ctx, byPath["big.txt"].ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 16), big.Content.V)
}

func TestIngestBlankNameDefaults(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestIngest(env, env.files, t.TempDir())

	result, err := svc.Ingest(context.Background(), "   ", writeZip(t, zipEntry{name: "a.go", content: "package a"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultAppName, result.AppName)
}

func TestIngestIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	failing := &failingFileRepo{FileRepository: env.files, failAt: 3}
	svc := newTestIngest(env, failing, t.TempDir())

	path := writeZip(t,
		zipEntry{name: "a.js", content: "a"},
		zipEntry{name: "b.js", content: "b"},
		zipEntry{name: "c.js", content: "c"},
		zipEntry{name: "d.js", content: "d"},
	)

	_, err := svc.Ingest(context.Background(), "broken", path)
	require.Error(t, err)

	var ingestErr *errs.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, "broken", ingestErr.AppName)
	assert.True(t, errs.IsStorage(err))
	assert.Equal(t, 3, failing.calls)

	assert.Equal(t, 0, env.count(t, "applications"))
	assert.Equal(t, 0, env.count(t, "files"))
}

func TestIngestRejectsCorruptArchive(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestIngest(env, env.files, t.TempDir())

	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0644))

	_, err := svc.Ingest(context.Background(), "bad", path)
	require.Error(t, err)
	assert.True(t, errs.IsArchive(err))
	assert.False(t, errs.IsStorage(err))
	assert.Equal(t, 0, env.count(t, "applications"))
}

func TestIngestUploadRemovesStagedFile(t *testing.T) {
	env := newTestEnv(t)
	uploadDir := t.TempDir()
	svc := newTestIngest(env, env.files, uploadDir)
	ctx := context.Background()

	data, err := os.ReadFile(writeZip(t, zipEntry{name: "main.go", content: "package main"}))
	require.NoError(t, err)

	result, err := svc.IngestUpload(ctx, "upload", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)

	left, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = svc.IngestUpload(ctx, "garbage", strings.NewReader("not a zip at all"))
	require.Error(t, err)
	assert.True(t, errs.IsArchive(err))

	left, err = os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 1, env.count(t, "applications"))
}

func TestIngestDirectory(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestIngest(env, env.files, t.TempDir())
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg", "db"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "db", "conn.go"), []byte("package db"), 0644))

	result, err := svc.IngestDirectory(ctx, "local", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)

	rows, err := env.files.List(ctx, repository.FileFilter{AppID: result.AppID})
	require.NoError(t, err)
	var paths []string
	for _, row := range rows {
		paths = append(paths, row.FullPath)
	}
	assert.ElementsMatch(t, []string{"main.go", "pkg/db/conn.go"}, paths)

	_, err = svc.IngestDirectory(ctx, "missing", filepath.Join(dir, "does-not-exist"))
	assert.Error(t, err)
}
