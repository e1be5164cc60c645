// internal/server/middleware.go - 中间件定义
package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"code-reviewer/internal/errs"
	"code-reviewer/pkg/logger"
	"code-reviewer/pkg/response"
)

// RecoveryMiddleware panic恢复中间件
func RecoveryMiddleware(logger logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		response.ErrorWithCode(c, http.StatusInternalServerError, errs.ErrInternalServerError,
			errors.New("internal server error"))
		c.Abort()
	})
}

// LoggingMiddleware 请求日志中间件
func LoggingMiddleware(logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("[GIN] %s %s %d %s %s %s",
			c.Request.Method,
			path,
			c.Writer.Status(),
			latency,
			c.ClientIP(),
			c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}

// CORSMiddleware CORS中间件
// "*" in allowed admits every origin; otherwise the request origin is echoed
// only when listed.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	wildcard := slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowed, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityMiddleware 安全中间件
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// AuthMiddleware 认证中间件
// 验证请求Header中的Authorization字段是否与配置中的token值一致
func AuthMiddleware(token string, logger logger.Logger) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("missing Authorization header from %s", c.ClientIP())
			response.ErrorWithCode(c, http.StatusUnauthorized, errs.ErrUnauthorized,
				errors.New("authorization header is required"))
			c.Abort()
			return
		}

		// 去除Bearer前缀（如果有）
		got := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			logger.Warn("invalid token from %s", c.ClientIP())
			response.ErrorWithCode(c, http.StatusUnauthorized, errs.ErrUnauthorized,
				errors.New("invalid token"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware 限流中间件
// A non-positive perSec disables limiting.
func RateLimitMiddleware(perSec float64, burst int, logger logger.Logger) gin.HandlerFunc {
	if perSec <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Warn("rate limit exceeded for %s %s", c.Request.Method, c.Request.URL.Path)
			response.ErrorWithCode(c, http.StatusTooManyRequests, errs.ErrTooManyRequests,
				fmt.Errorf("too many requests, limit is %.2f/s", perSec))
			c.Abort()
			return
		}
		c.Next()
	}
}
