package service

import (
	"bytes"
	"os"

	"code-reviewer/internal/model"
	"code-reviewer/pkg/logger"
)

// sourceReader resolves the text a provider prompt is built from.
type sourceReader struct {
	readFile func(name string) ([]byte, error)
	logger   logger.Logger
}

func newSourceReader(logger logger.Logger) *sourceReader {
	return &sourceReader{readFile: os.ReadFile, logger: logger}
}

// text returns the stored content, falling back to reading full_path from
// the local filesystem when nothing was stored. A failed fallback yields "".
func (r *sourceReader) text(file *model.File) string {
	if file.Content.Valid {
		return file.Content.V
	}
	data, err := r.readFile(file.FullPath)
	if err != nil {
		r.logger.Warn("file %d has no stored content and %s is unreadable: %v", file.ID, file.FullPath, err)
		return ""
	}
	return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
}
