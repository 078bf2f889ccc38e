// Package logging builds the zap loggers used across brim. Development mode
// writes human-readable console lines; otherwise records are JSON. The
// terminal frontend owns stdout, so the usual sink is a log file.
package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes a logger.
type Config struct {
	Level       string   `yaml:"level" envconfig:"level"`
	Development bool     `yaml:"development" envconfig:"development"`
	OutputPaths []string `yaml:"output_paths" envconfig:"output_paths"`
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		OutputPaths: []string{"stderr"},
	}
}

// Validate reports whether the level parses and at least one sink is set.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	if len(c.OutputPaths) == 0 {
		return errors.New("logging: no output paths")
	}
	return nil
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding(cfg.Development),
		EncoderConfig:     encoderConfig(cfg.Development),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  cfg.OutputPaths,
		DisableStacktrace: !cfg.Development,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}

	return logger, nil
}

// NewDefault builds a logger from DefaultConfig, falling back to a no-op
// logger if that fails.
func NewDefault() *zap.Logger {
	logger, err := New(DefaultConfig())
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ParseLevel converts a level name such as "debug" or "warn". An empty name
// means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}

	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: level %q: %w", name, err)
	}
	return l, nil
}

func encoding(development bool) string {
	if development {
		return "console"
	}
	return "json"
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		return zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
	}

	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
