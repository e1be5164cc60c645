// archive/ingestor.go - zip 上传包解析
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	gitignore "github.com/sabhiram/go-gitignore"

	"code-reviewer/internal/errs"
	"code-reviewer/pkg/logger"
)

// DefaultMaxFileBytes caps the stored content of a single entry.
const DefaultMaxFileBytes = 512 * 1024

// Config controls which entries are kept and how much of each is read.
type Config struct {
	MaxFileBytes   int
	IgnorePatterns []string
}

// Entry is one regular file staged for insertion.
type Entry struct {
	Name     string
	Folder   sql.Null[string]
	FullPath string
	Content  sql.Null[string]
}

// Ingestor walks the entries of one zip archive.
type Ingestor struct {
	reader   *zip.Reader
	closer   io.Closer
	maxBytes int
	ignore   *gitignore.GitIgnore
	logger   logger.Logger
	skipped  int
}

// Open opens the zip at filePath. Failures to open the file or parse its
// central directory are returned as *errs.ArchiveError.
func Open(filePath string, cfg Config, logger logger.Logger) (*Ingestor, error) {
	rc, err := zip.OpenReader(filePath)
	if rc == nil {
		if err == nil {
			err = errors.New("no archive reader")
		}
		return nil, errs.NewArchiveError("open archive", err)
	}
	if err != nil {
		logger.Warn("archive reader reported: %v", err)
	}
	ing := newIngestor(&rc.Reader, cfg, logger)
	ing.closer = rc
	return ing, nil
}

// NewIngestor reads an archive from any random-access source.
func NewIngestor(r io.ReaderAt, size int64, cfg Config, logger logger.Logger) (*Ingestor, error) {
	zr, err := zip.NewReader(r, size)
	if zr == nil {
		if err == nil {
			err = errors.New("no archive reader")
		}
		return nil, errs.NewArchiveError("read central directory", err)
	}
	if err != nil {
		// insecure names are still readable; they are filtered per entry
		logger.Warn("archive reader reported: %v", err)
	}
	return newIngestor(zr, cfg, logger), nil
}

func newIngestor(zr *zip.Reader, cfg Config, logger logger.Logger) *Ingestor {
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	var ignore *gitignore.GitIgnore
	if len(cfg.IgnorePatterns) > 0 {
		ignore = gitignore.CompileIgnoreLines(cfg.IgnorePatterns...)
	}
	return &Ingestor{
		reader:   zr,
		maxBytes: maxBytes,
		ignore:   ignore,
		logger:   logger,
	}
}

// Close releases the underlying file when the ingestor was created by Open.
func (i *Ingestor) Close() error {
	if i.closer == nil {
		return nil
	}
	return i.closer.Close()
}

// Skipped is the number of entries dropped so far because of a bad path,
// an ignore pattern or a read failure.
func (i *Ingestor) Skipped() int {
	return i.skipped
}

// Entries yields the regular files of the archive in central-directory order.
// Directories are never yielded. Entries are read sequentially and lazily.
func (i *Ingestor) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, f := range i.reader.File {
			if isDirectory(f) {
				continue
			}
			if !f.Mode().IsRegular() {
				i.drop(f.Name, "not a regular file")
				continue
			}

			fullPath, ok := enclosedName(f.Name)
			if !ok {
				i.drop(f.Name, "path escapes archive root")
				continue
			}
			if i.ignore != nil && i.ignore.MatchesPath(fullPath) {
				i.skipped++
				i.logger.Debug("skip ignored entry %s", fullPath)
				continue
			}

			content, err := i.readBounded(f)
			if err != nil {
				i.drop(fullPath, err.Error())
				continue
			}

			entry := Entry{
				Name:     path.Base(fullPath),
				FullPath: fullPath,
				Content:  content,
			}
			if dir := path.Dir(fullPath); dir != "." {
				entry.Folder = sql.Null[string]{V: dir, Valid: true}
			}
			if !yield(entry) {
				return
			}
		}
	}
}

func (i *Ingestor) drop(name, reason string) {
	i.skipped++
	i.logger.Warn("drop archive entry %q: %s", name, reason)
}

func (i *Ingestor) readBounded(f *zip.File) (sql.Null[string], error) {
	rc, err := f.Open()
	if err != nil {
		return sql.Null[string]{}, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()
	return BoundContent(rc, i.maxBytes)
}

func isDirectory(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// enclosedName normalises an entry name and rejects anything that could land
// outside the extraction root: absolute paths, drive letters, ".." escapes,
// NUL bytes and empty names.
func enclosedName(name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") {
		return "", false
	}
	if len(name) >= 2 && name[1] == ':' {
		return "", false
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

// BoundContent reads at most limit bytes from r and decodes them permissively.
// Bytes past the limit are never buffered. The result never exceeds limit
// bytes and never ends in a partial multi-byte character. Empty input yields
// an invalid (NULL) value.
func BoundContent(r io.Reader, limit int) (sql.Null[string], error) {
	buf, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return sql.Null[string]{}, err
	}
	if len(buf) == 0 {
		return sql.Null[string]{}, nil
	}
	if len(buf) == limit {
		buf = trimPartialRune(buf)
	}

	s := string(buf)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	if len(s) > limit {
		s = s[:runeBoundary(s, limit)]
	}
	if s == "" {
		return sql.Null[string]{}, nil
	}
	return sql.Null[string]{V: s, Valid: true}, nil
}

// trimPartialRune drops an incomplete UTF-8 sequence cut off by the limit.
func trimPartialRune(buf []byte) []byte {
	for back := 1; back <= utf8.UTFMax && back <= len(buf); back++ {
		start := len(buf) - back
		if !utf8.RuneStart(buf[start]) {
			continue
		}
		if !utf8.FullRune(buf[start:]) {
			return buf[:start]
		}
		return buf
	}
	return buf
}

// runeBoundary returns the largest index <= n that starts a rune in s.
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
