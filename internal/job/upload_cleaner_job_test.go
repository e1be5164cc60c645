package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-reviewer/test/mocks"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestUploadCleanerRemovesStaleZips(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(dir, "old.zip"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, "fresh.zip"), now.Add(-5*time.Minute))
	touch(t, filepath.Join(dir, "old.txt"), now.Add(-48*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.zip"), 0755))

	j := NewUploadCleanerJob(dir, time.Minute, time.Hour, &mocks.MockLogger{})
	j.now = func() time.Time { return now }

	assert.Equal(t, 1, j.executeCleanup())

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"fresh.zip", "old.txt", "nested.zip"}, names)
}

func TestUploadCleanerMissingDir(t *testing.T) {
	logger := &mocks.MockLogger{}
	j := NewUploadCleanerJob(filepath.Join(t.TempDir(), "absent"), 0, 0, logger)

	assert.Equal(t, 0, j.executeCleanup())
	assert.Empty(t, logger.Messages("error"))
	assert.Equal(t, 30*time.Minute, j.interval)
	assert.Equal(t, time.Hour, j.maxAge)
}

func TestUploadCleanerStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "stale.zip"), time.Now().Add(-3*time.Hour))

	logger := &mocks.MockLogger{}
	j := NewUploadCleanerJob(dir, time.Hour, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "stale.zip"))
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleaner did not stop")
	}
	assert.Contains(t, logger.Messages("info"), "upload cleaner job stopped")
}

func TestPurgeStagedUploadsKeepsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "just-staged.zip"), time.Now().Add(-time.Second))
	touch(t, filepath.Join(dir, "notes.txt"), time.Now().Add(-time.Second))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0755))

	assert.Equal(t, 1, PurgeStagedUploads(dir, &mocks.MockLogger{}))

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"notes.txt", "keep"}, names)
}
