// Package logger builds the zap loggers used by the service and commands.
package logger

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Common field names
const (
	FieldSession = "session"
	FieldFrame   = "frame"
	FieldFile    = "file"
	FieldCamera  = "camera"
)

// Config selects the logger output
type Config struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// JSON writes structured JSON lines, otherwise human readable console
	// output is used
	JSON bool `mapstructure:"json"`
}

// DefaultConfig returns console output at info level
func DefaultConfig() Config {
	return Config{
		Level: "info",
	}
}

// New builds a sugared logger from cfg
func New(cfg Config) (*zap.SugaredLogger, error) {

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))

	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	var zc zap.Config

	if cfg.JSON {
		// JSON structured output for machine consumption
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	zl, err := zc.Build()

	if err != nil {
		return nil, errors.Wrap(err, "error building logger")
	}

	return zl.Sugar(), nil
}

// Nop returns a logger that discards everything
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
