package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"code-reviewer/internal/daemon"
	"code-reviewer/internal/handler"
	"code-reviewer/internal/job"
	"code-reviewer/internal/metrics"
	"code-reviewer/internal/server"
	"code-reviewer/pkg/logger"
)

var (
	httpAddr  string
	pprofAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address, overrides server.addr")
	serveCmd.Flags().StringVar(&pprofAddr, "pprof-addr", "", "Enable pprof on this address")
}

func runServe(ctx context.Context) error {
	deps, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer deps.close()
	appLogger := deps.logger
	cfg := deps.cfg
	if httpAddr != "" {
		cfg.Server.Addr = httpAddr
	}

	m := metrics.NewNoop()
	if cfg.Server.MetricsEnabled {
		if m, err = metrics.New(); err != nil {
			return err
		}
	}

	svc, err := deps.services(m)
	if err != nil {
		return err
	}

	apiHandler := handler.NewAPIHandler(svc.ingest, svc.analysis, svc.summary, svc.files, svc.graph,
		cfg.Server.MaxUploadBytes(), appLogger)
	httpServer := server.NewServer(cfg.Server, apiHandler, m.Handler(), appLogger)

	cleaner := job.NewUploadCleanerJob(cfg.Ingest.UploadTmpDir, cfg.Ingest.CleanerInterval(),
		cfg.Ingest.CleanerMaxAge(), appLogger)

	if pprofAddr != "" {
		setupPprof(pprofAddr, appLogger)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.NewDaemon(httpServer, cfg.Ingest.UploadTmpDir, appLogger, cleaner)
	errCh := d.Start()
	appLogger.Info("application started on %s", cfg.Server.Addr)

	var serveErr error
	select {
	case <-ctx.Done():
		appLogger.Info("received shutdown signal, shutting down gracefully...")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := d.Stop(shutdownCtx); err != nil {
		appLogger.Error("daemon stop error: %v", err)
	}
	if err := m.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("metrics shutdown error: %v", err)
	}
	if serveErr != nil {
		return serveErr
	}
	appLogger.Info("server has been successfully closed")
	return nil
}

func memStatsHandler(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(memStats)
}

func setupPprof(addr string, appLogger logger.Logger) {
	go func() {
		pprofMux := http.NewServeMux()
		pprofMux.HandleFunc("/debug/pprof/", pprof.Index)
		pprofMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		pprofMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		pprofMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		pprofMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		pprofMux.Handle("/debug/pprof/memStats", http.HandlerFunc(memStatsHandler))

		appLogger.Info("pprof server starting on %s", addr)
		if err := http.ListenAndServe(addr, pprofMux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("pprof server error: %v", err)
		}
	}()
}
