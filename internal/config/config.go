// config.go - Application configuration management

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"code-reviewer/internal/utils"
)

type ServerConfig struct {
	Addr              string   `toml:"addr"`
	ReadTimeout       int      `toml:"readTimeout"`  // seconds
	WriteTimeout      int      `toml:"writeTimeout"` // seconds, covers provider latency
	ShutdownTimeout   int      `toml:"shutdownTimeout"`
	RateLimitPerSec   float64  `toml:"rateLimitPerSec"` // 0 disables the limiter
	RateLimitBurst    int      `toml:"rateLimitBurst"`
	AuthToken         string   `toml:"authToken"` // optional bearer token for /api
	AllowedOrigins    []string `toml:"allowedOrigins"`
	MetricsEnabled    bool     `toml:"metricsEnabled"`
	MaxUploadMB       int      `toml:"maxUploadMB"`
	DefaultAppName    string   `toml:"defaultAppName"`
	TrustedProxies    []string `toml:"trustedProxies"`
	GinReleaseMode    bool     `toml:"ginReleaseMode"`
	RequestLogEnabled bool     `toml:"requestLogEnabled"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"` // openai | anthropic
	APIKey         string `toml:"apiKey"`
	BaseURL        string `toml:"baseURL"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
	MaxRetries     int    `toml:"maxRetries"`
	MaxTokens      int    `toml:"maxTokens"`
}

type IngestConfig struct {
	MaxFileBytes           int      `toml:"maxFileBytes"`
	IgnorePatterns         []string `toml:"ignorePatterns"`
	UploadTmpDir           string   `toml:"uploadTmpDir"`
	CleanerIntervalMinutes int      `toml:"cleanerIntervalMinutes"`
	CleanerMaxAgeMinutes   int      `toml:"cleanerMaxAgeMinutes"`
}

type AnalysisConfig struct {
	PreviewWords int `toml:"previewWords"`
	SnippetChars int `toml:"snippetChars"`
	PageSize     int `toml:"pageSize"`
	MaxPageSize  int `toml:"maxPageSize"`
}

type LogConfig struct {
	Dir   string `toml:"dir"`
	Level string `toml:"level"`
}

// AppConfig is the whole configuration file structure
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Ingest   IngestConfig   `toml:"ingest"`
	Analysis AnalysisConfig `toml:"analysis"`
	Log      LogConfig      `toml:"log"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultOpenAIModel    = "gpt-5"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

var DefaultServerConfig = ServerConfig{
	Addr:              "127.0.0.1:8080",
	ReadTimeout:       60,
	WriteTimeout:      300,
	ShutdownTimeout:   5,
	RateLimitPerSec:   20,
	RateLimitBurst:    40,
	AllowedOrigins:    []string{"*"},
	MetricsEnabled:    true,
	MaxUploadMB:       100,
	DefaultAppName:    "MyApp",
	RequestLogEnabled: true,
}

var DefaultLLMConfig = LLMConfig{
	Provider:       ProviderOpenAI,
	BaseURL:        DefaultOpenAIBaseURL,
	Model:          DefaultOpenAIModel,
	TimeoutSeconds: 180,
	MaxRetries:     2,
	MaxTokens:      4096,
}

var DefaultIngestConfig = IngestConfig{
	MaxFileBytes:           512 * 1024,
	CleanerIntervalMinutes: 30,
	CleanerMaxAgeMinutes:   60,
}

var DefaultAnalysisConfig = AnalysisConfig{
	PreviewWords: 50,
	SnippetChars: 2000,
	PageSize:     25,
	MaxPageSize:  200,
}

var DefaultLogConfig = LogConfig{
	Level: "info",
}

// DefaultAppConfig returns a fresh copy of the built-in defaults.
func DefaultAppConfig() *AppConfig {
	server := DefaultServerConfig
	server.AllowedOrigins = append([]string(nil), DefaultServerConfig.AllowedOrigins...)
	return &AppConfig{
		Server:   server,
		Database: *DefaultDatabaseConfig(),
		LLM:      DefaultLLMConfig,
		Ingest:   DefaultIngestConfig,
		Analysis: DefaultAnalysisConfig,
		Log:      DefaultLogConfig,
	}
}

// Load builds the configuration from defaults, an optional TOML file, an
// optional .env file and finally the process environment.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnv(cfg, os.LookupEnv)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	str("HTTP_ADDR", &cfg.Server.Addr)
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		host := "127.0.0.1"
		if i := strings.LastIndex(cfg.Server.Addr, ":"); i >= 0 {
			host = cfg.Server.Addr[:i]
		}
		cfg.Server.Addr = host + ":" + strings.TrimSpace(port)
	}
	str("AUTH_TOKEN", &cfg.Server.AuthToken)

	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_URL", &cfg.Database.DSN)
	str("DATA_DIR", &cfg.Database.DataDir)

	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	num("LLM_TIMEOUT_SECONDS", &cfg.LLM.TimeoutSeconds)
	switch cfg.LLM.Provider {
	case ProviderAnthropic:
		str("ANTHROPIC_API_KEY", &cfg.LLM.APIKey)
	default:
		str("OPENAI_API_KEY", &cfg.LLM.APIKey)
	}

	num("MAX_FILE_BYTES", &cfg.Ingest.MaxFileBytes)
	str("UPLOAD_TMP_DIR", &cfg.Ingest.UploadTmpDir)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_DIR", &cfg.Log.Dir)
}

func (c *AppConfig) normalize() {
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "sqlite" {
		c.Database.Driver = DriverSQLite
	}
	if c.LLM.Provider == ProviderAnthropic {
		if c.LLM.Model == DefaultOpenAIModel {
			c.LLM.Model = DefaultAnthropicModel
		}
		if c.LLM.BaseURL == DefaultOpenAIBaseURL {
			c.LLM.BaseURL = ""
		}
	}
	if c.Ingest.UploadTmpDir == "" {
		c.Ingest.UploadTmpDir = utils.UploadTmpDir
	}
	if c.Log.Dir == "" {
		c.Log.Dir = utils.LogsDir
	}
	if c.Analysis.PageSize <= 0 {
		c.Analysis.PageSize = DefaultAnalysisConfig.PageSize
	}
	if c.Analysis.MaxPageSize < c.Analysis.PageSize {
		c.Analysis.MaxPageSize = c.Analysis.PageSize
	}
	if c.Server.DefaultAppName == "" {
		c.Server.DefaultAppName = DefaultServerConfig.DefaultAppName
	}
}

// Validate rejects settings that can never work. A missing API key is not an
// error here; it surfaces as a configuration error on the first provider call.
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	if c.Ingest.MaxFileBytes <= 0 {
		return fmt.Errorf("ingest.maxFileBytes must be positive, got %d", c.Ingest.MaxFileBytes)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.maxUploadMB must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *IngestConfig) CleanerInterval() time.Duration {
	return time.Duration(c.CleanerIntervalMinutes) * time.Minute
}

func (c *IngestConfig) CleanerMaxAge() time.Duration {
	return time.Duration(c.CleanerMaxAgeMinutes) * time.Minute
}

func (c *ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// AppInfo holds application metadata
type AppInfo struct {
	AppName  string `json:"appName"`
	Version  string `json:"version"`
	OSName   string `json:"osName"`
	ArchName string `json:"archName"`
}

var appInfo AppInfo

func GetAppInfo() AppInfo {
	return appInfo
}

func SetAppInfo(info AppInfo) {
	appInfo = info
}
