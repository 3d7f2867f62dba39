// Package logger provides the process-wide structured logger built on zap.
// Records go to stdout in console format and, when LogFile is set, to a file
// in JSON format.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Config struct {
		LogFile   string `yaml:"log_file" env:"LOG_FILE"`
		LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
		AppName   string `yaml:"app_name" env:"APP_NAME"`
		AddCaller bool   `yaml:"add_caller" env:"LOG_ADD_CALLER"`
	}

	// Logger wraps zap so the rest of the code depends on one type.
	Logger struct {
		*zap.Logger
	}
)

var (
	mu     sync.RWMutex
	global *Logger
)

// Init builds the global logger. Calling it again replaces the logger.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	global = l
	mu.Unlock()

	return nil
}

// New builds a logger without touching the global one.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level),
	}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	l := zap.New(zapcore.NewTee(cores...), opts...)
	if cfg.AppName != "" {
		l = l.With(zap.String("app", cfg.AppName))
	}

	return &Logger{Logger: l}, nil
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return &Logger{Logger: zap.NewNop()}
	}
	return global
}

// Sync flushes buffered records of the global logger.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return nil
	}
	return global.Logger.Sync()
}

// Named returns a child logger for a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}
