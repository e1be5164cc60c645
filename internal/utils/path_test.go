package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubDirectories(t *testing.T) {
	root := t.TempDir()

	logDir, err := GetLogDir(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "logs"), logDir)
	assert.Equal(t, logDir, LogsDir)
	assert.DirExists(t, logDir)

	tmpDir, err := GetUploadTmpDir(root)
	require.NoError(t, err)
	assert.Equal(t, tmpDir, UploadTmpDir)
	assert.DirExists(t, tmpDir)

	cacheDir, err := GetCacheDir(root)
	require.NoError(t, err)
	dbDir, err := GetCacheDbDir(cacheDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "cache", "db"), dbDir)
	assert.Equal(t, dbDir, DbDir)
}

func TestSubDirectoryMissingParent(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := GetLogDir(missing)
	assert.Error(t, err)
	_, err = GetCacheDbDir(missing)
	assert.Error(t, err)

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetRootDirUsesXDG(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("XDG layout only applies to unix-like systems")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	got, err := GetRootDir("code-reviewer-test")
	require.NoError(t, err)
	assert.DirExists(t, got)
	assert.Equal(t, got, AppRootDir)
}
