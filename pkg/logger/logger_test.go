package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("Successfully create log directory", func(t *testing.T) {
		logsDir := filepath.Join(t.TempDir(), "logs")
		l, err := NewLogger(logsDir, "debug", "code-reviewer-test")
		require.NoError(t, err)
		require.NotNil(t, l)
		l.Info("hello %s", "world")

		info, err := os.Stat(logsDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Log level validation", func(t *testing.T) {
		observedCore, observedLogs := observer.New(zapcore.InfoLevel)
		sugar := zap.New(observedCore).Sugar()
		l := &logger{sugar: sugar}

		l.Debug("debug message")
		l.Info("info %s", "message")

		logs := observedLogs.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "info message", logs[0].Message)
	})

	t.Run("Failed to create log directory returns error", func(t *testing.T) {
		rootDir := t.TempDir()
		fileAsDir := filepath.Join(rootDir, "thisIsAFileNotADirectory")
		require.NoError(t, os.WriteFile(fileAsDir, []byte("I am a file"), 0644))

		_, err := NewLogger(fileAsDir, "debug", "")
		assert.Error(t, err)
	})

	t.Run("Invalid log directory returns error", func(t *testing.T) {
		_, err := NewLogger("", "warn", "")
		assert.Error(t, err)
	})
}
