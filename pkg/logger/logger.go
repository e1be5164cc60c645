package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志级别映射
var logLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Logger is the printf-style logging interface injected into every component.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

type logger struct {
	log   *zap.Logger
	sugar *zap.SugaredLogger
}

// NewLogger writes JSON lines to stdout and to a daily rotated file under logsDir.
func NewLogger(logsDir, level, appName string) (Logger, error) {
	if strings.TrimSpace(logsDir) == "" {
		return nil, errors.New("logs directory cannot be empty")
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	if appName == "" {
		appName = "code-reviewer"
	}

	currentDate := time.Now().Format("20060102")
	logFileName := filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", appName, currentDate))

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    100, // megabytes
		MaxBackups: 0,
		MaxAge:     5, // days
		Compress:   true,
		LocalTime:  true,
	})

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	logLevel, exists := logLevelMap[strings.ToLower(level)]
	if !exists {
		logLevel = zapcore.InfoLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			logLevel,
		),
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			fileWriter,
			logLevel,
		),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &logger{
		log:   zapLogger,
		sugar: zapLogger.Sugar(),
	}, nil
}

// NewConsoleLogger logs to stdout only; used by one-shot commands.
func NewConsoleLogger(level string) Logger {
	cfg := zap.NewProductionConfig()
	if lvl, ok := logLevelMap[strings.ToLower(level)]; ok {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return &logger{
		log:   zapLogger,
		sugar: zapLogger.Sugar(),
	}
}

func (l *logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// 致命错误日志
func (l *logger) Fatal(format string, args ...any) {
	l.sugar.Fatalf(format, args...)
}
