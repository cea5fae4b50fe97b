// Package logging provides slog construction and adapters for the storage libraries.
package logging

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	gormlogger "gorm.io/gorm/logger"
)

// ComponentKey is the attribute key used to identify the component in log records.
const ComponentKey = "component"

// Config holds logging configuration
type Config struct {
	Level string `mapstructure:"level"`
}

// SetDefaults sets viper defaults for logging configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"level", "info")
}

// ParseLevel converts a string to slog.Level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a JSON logger on stdout with the specified level.
func NewLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// Component returns a child logger tagged with the component name.
// A nil parent falls back to slog.Default().
func Component(parent *slog.Logger, component string) *slog.Logger {
	if parent == nil {
		parent = slog.Default()
	}
	return parent.With(ComponentKey, component)
}

// BadgerLogger adapts slog.Logger to the badger.Logger interface.
type BadgerLogger struct {
	Logger *slog.Logger
}

func (b *BadgerLogger) Errorf(format string, args ...any) {
	b.Logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *BadgerLogger) Warningf(format string, args ...any) {
	b.Logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Infof is demoted to debug; badger is chatty at info level.
func (b *BadgerLogger) Infof(format string, args ...any) {
	b.Logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *BadgerLogger) Debugf(format string, args ...any) {
	b.Logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewGormLogger routes gorm's SQL logging through the slog handler at warn level.
func NewGormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(
		slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// compile-time check that *log.Logger satisfies gorm's writer
var _ gormlogger.Writer = (*log.Logger)(nil)
