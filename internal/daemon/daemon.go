// daemon/daemon.go - 守护进程
package daemon

import (
	"context"
	"sync"

	"code-reviewer/internal/job"
	"code-reviewer/internal/server"
	"code-reviewer/pkg/logger"
)

// Job is a background task that runs until its context is cancelled.
type Job interface {
	Start(ctx context.Context)
}

// Daemon owns the HTTP server and the background jobs of one process.
type Daemon struct {
	server    server.Server
	jobs      []Job
	uploadDir string
	logger    logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errCh     chan error
}

// NewDaemon 创建守护进程。Staged uploads left in uploadDir are purged on
// Stop; empty skips that.
func NewDaemon(srv server.Server, uploadDir string, logger logger.Logger, jobs ...Job) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		server:    srv,
		jobs:      jobs,
		uploadDir: uploadDir,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		errCh:     make(chan error, 1),
	}
}

// Start launches the server and every job. The returned channel receives
// the server error if it stops on its own, and is closed once it has exited.
func (d *Daemon) Start() <-chan error {
	d.logger.Info("daemon started with %d jobs", len(d.jobs))

	go func() {
		defer close(d.errCh)
		if err := d.server.Start(); err != nil {
			d.logger.Error("HTTP server exited: %v", err)
			d.errCh <- err
		}
	}()

	for _, j := range d.jobs {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			j.Start(d.ctx)
		}()
	}
	return d.errCh
}

// Stop drains in-flight requests, stops the jobs and purges staged uploads.
func (d *Daemon) Stop(ctx context.Context) error {
	d.logger.Info("stopping daemon...")

	err := d.server.Shutdown(ctx)
	if err != nil {
		d.logger.Error("HTTP server shutdown error: %v", err)
	}

	d.cancel()
	d.wg.Wait()

	if d.uploadDir != "" {
		n := job.PurgeStagedUploads(d.uploadDir, d.logger)
		d.logger.Info("purged %d staged uploads from %s", n, d.uploadDir)
	}

	d.logger.Info("daemon stopped")
	return err
}
