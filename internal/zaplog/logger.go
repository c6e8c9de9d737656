// Package zaplog is the zap front-end of the log hub.
//
// NewCore adapts a loghub.Recorder to zapcore.Core, so anything logged through
// zap is retained and streamed by the hub. New builds the process logger: an
// output core writing JSON or console lines to stdout or to a rotating file,
// teed with the hub core.
package zaplog

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

var (
	// ErrInvalidFormat is returned for an output format other than json or console
	ErrInvalidFormat = errors.New("log format must be json or console")
	// ErrInvalidLevel is returned when a level name cannot be parsed
	ErrInvalidLevel = errors.New("invalid log level")
)

// Config controls the process logger.
type Config struct {
	// Level is the minimum level written to the output (default "info")
	Level string `yaml:"level"`
	// HubLevel is the minimum level recorded into the hub (default "debug")
	HubLevel string `yaml:"hub_level"`
	// Format is "json" or "console" (default "json")
	Format string `yaml:"format"`
	// Development switches to zap's development encoder settings
	Development bool `yaml:"development"`

	// File, when set, sends output to a rotating file instead of stdout
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// SetDefaults fills in zero values
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.HubLevel == "" {
		c.HubLevel = "debug"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 28
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	if _, err := ParseLevel(c.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	if _, err := ParseLevel(c.HubLevel); err != nil {
		return fmt.Errorf("hub level: %w", err)
	}
	return nil
}

// ParseLevel accepts zap level names plus "trace", which maps below debug.
func ParseLevel(name string) (zapcore.Level, error) {
	if level, err := history.ParseLevel(name); err == nil && level == history.Trace {
		return ZapLevel(history.Trace), nil
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
	}
	return level, nil
}

// New builds the process logger. When recorder is non-nil every entry at or
// above HubLevel is also recorded into it.
func New(config *Config, recorder loghub.Recorder) (*zap.Logger, error) {
	if config == nil {
		config = &Config{}
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	outputLevel, _ := ParseLevel(config.Level)
	hubLevel, _ := ParseLevel(config.HubLevel)

	zapConfig := zap.NewProductionConfig()
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(zapConfig.EncoderConfig)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, writeSyncer(config), outputLevel)}
	if recorder != nil {
		cores = append(cores, NewCore(recorder, hubLevel))
	}

	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if config.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func writeSyncer(config *Config) zapcore.WriteSyncer {
	if config.File == "" {
		return zapcore.Lock(os.Stdout)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   config.Compress,
	})
}

// WithRequestID attaches request context to logger.
func WithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("request_id", requestID))
}

// Sync flushes logger.
func Sync(logger *zap.Logger) {
	if logger == nil {
		return
	}
	_ = logger.Sync()
}
