// job/upload_cleaner_job.go - Stale upload cleanup job
package job

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code-reviewer/pkg/logger"
)

// UploadCleanerJob 过期上传文件清理任务
type UploadCleanerJob struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	logger   logger.Logger
}

// NewUploadCleanerJob 创建新的上传清理任务
func NewUploadCleanerJob(dir string, interval, maxAge time.Duration, logger logger.Logger) *UploadCleanerJob {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &UploadCleanerJob{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		logger:   logger,
	}
}

// Start 启动清理任务，阻塞直到 ctx 结束
func (j *UploadCleanerJob) Start(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("recovered from panic in upload cleaner job: %v", r)
		}
	}()

	j.logger.Info("upload cleaner job started (dir=%s, interval=%v, maxAge=%v)", j.dir, j.interval, j.maxAge)

	// 立即执行一次清理
	j.executeCleanup()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("upload cleaner job stopped")
			return
		case <-ticker.C:
			j.executeCleanup()
		}
	}
}

// executeCleanup removes staged uploads older than maxAge and returns how
// many were deleted.
func (j *UploadCleanerJob) executeCleanup() int {
	return j.removeStaged(j.now().Add(-j.maxAge))
}

// PurgeStagedUploads removes every staged "*.zip" upload in dir regardless of
// age. Other files and the directory itself are left in place.
func PurgeStagedUploads(dir string, logger logger.Logger) int {
	j := &UploadCleanerJob{dir: dir, now: time.Now, logger: logger}
	return j.removeStaged(j.now())
}

// removeStaged deletes staged uploads last modified at or before cutoff.
func (j *UploadCleanerJob) removeStaged(cutoff time.Time) int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			j.logger.Error("failed to read upload dir %s: %v", j.dir, err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			j.logger.Warn("failed to remove stale upload %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("removed %d stale uploads from %s", removed, j.dir)
	}
	return removed
}
