package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("disk full")

	t.Run("not found wraps sentinel", func(t *testing.T) {
		err := NewRecordNotFoundErr("file", 42)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, "file not found by 42: record not found", err.Error())
	})

	t.Run("ingest error exposes storage cause", func(t *testing.T) {
		err := NewIngestError("demo", NewStorageError("insert file", cause))
		assert.True(t, IsStorage(err))
		assert.False(t, IsArchive(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("ingest error exposes archive cause", func(t *testing.T) {
		err := NewIngestError("demo", NewArchiveError("open archive", cause))
		assert.True(t, IsArchive(err))
		assert.False(t, IsStorage(err))
	})

	t.Run("provider error keeps status", func(t *testing.T) {
		err := fmt.Errorf("analyze: %w", NewProviderError("openai", 502, cause))
		var pe *ProviderError
		assert.True(t, errors.As(err, &pe))
		assert.Equal(t, 502, pe.StatusCode)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("configuration error is distinct from provider error", func(t *testing.T) {
		err := NewConfigurationError("llm.api_key", "credential is empty")
		assert.True(t, IsConfiguration(err))
		assert.False(t, IsProvider(err))
	})
}
