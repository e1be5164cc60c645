// internal/server/router.go - 路由配置和服务器初始化
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"code-reviewer/internal/config"
	"code-reviewer/internal/dto"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/handler"
	"code-reviewer/pkg/logger"
	"code-reviewer/pkg/response"
)

const apiPrefix = "/api/v1"

// Server 服务器接口
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
	// Handler exposes the routed engine, mainly for tests.
	Handler() http.Handler
}

type server struct {
	cfg        config.ServerConfig
	engine     *gin.Engine
	api        *handler.APIHandler
	metrics    http.Handler
	logger     logger.Logger
	httpServer *http.Server
}

// NewServer 创建新的HTTP服务器
// metricsHandler may be nil, in which case /metrics is not routed.
func NewServer(cfg config.ServerConfig, api *handler.APIHandler, metricsHandler http.Handler, logger logger.Logger) Server {
	if cfg.GinReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &server{
		cfg:     cfg,
		engine:  gin.New(),
		api:     api,
		metrics: metricsHandler,
		logger:  logger,
	}
	if err := s.engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies %v: %v", cfg.TrustedProxies, err)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *server) Start() error {
	s.httpServer = &http.Server{
		Addr:           s.cfg.Addr,
		Handler:        s.engine,
		ReadTimeout:    time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(s.cfg.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	s.logger.Info("starting HTTP server on %s", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *server) Handler() http.Handler {
	return s.engine
}

// setupMiddleware 设置中间件
func (s *server) setupMiddleware() {
	s.engine.Use(RecoveryMiddleware(s.logger))
	if s.cfg.RequestLogEnabled {
		s.engine.Use(LoggingMiddleware(s.logger))
	}
	s.engine.Use(CORSMiddleware(s.cfg.AllowedOrigins))
	s.engine.Use(SecurityMiddleware())
	s.engine.Use(RateLimitMiddleware(s.cfg.RateLimitPerSec, s.cfg.RateLimitBurst, s.logger))

	// 健康检查
	s.engine.GET("/health", func(c *gin.Context) {
		response.OkJson(c, &dto.HealthResponse{
			Status:  "ok",
			Version: config.GetAppInfo().Version,
			Time:    time.Now(),
		})
	})

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}
}

// setupRoutes 设置路由
func (s *server) setupRoutes() {
	api := s.engine.Group(apiPrefix)
	if s.cfg.AuthToken != "" {
		api.Use(AuthMiddleware(s.cfg.AuthToken, s.logger))
	}
	s.api.RegisterRoutes(api)

	// 404处理
	s.engine.NoRoute(func(c *gin.Context) {
		response.ErrorWithCode(c, http.StatusNotFound, errs.ErrRouteNotFound, errors.New("endpoint not found"))
	})

	// 405处理
	s.engine.HandleMethodNotAllowed = true
	s.engine.NoMethod(func(c *gin.Context) {
		response.ErrorWithCode(c, http.StatusMethodNotAllowed, errs.ErrMethodNotAllowed, errors.New("method not allowed"))
	})
}
