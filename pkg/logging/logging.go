// Package logging builds the zap loggers used across nucleon.
package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is the type used for storing values in context
type ContextKey string

// LoggerKey is the key for storing a request-scoped logger in context
const LoggerKey ContextKey = "logger"

// Structured field names
const (
	FieldStage       = "stage"
	FieldJobID       = "job_id"
	FieldRequestID   = "request_id"
	FieldInputSize   = "input_size"
	FieldOutputSize  = "output_size"
	FieldSequenceLen = "sequence_length"
	FieldECCSymbols  = "ecc_symbols"
	FieldCorrected   = "corrected"
	FieldBlocks      = "failed_blocks"
	FieldBlockCount  = "blocks"
	FieldFileName    = "file_name"
)

// ParseLevel maps a level name to a zap level. Unknown or empty names fall
// back to the LOG_LEVEL environment variable and then to info.
func ParseLevel(name string) zapcore.Level {
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a readable console logger at the given level writing to stderr.
func New(level string) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		config.Encoding = "json"
		config.EncoderConfig = zap.NewProductionEncoderConfig()
	}

	return config.Build()
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// WithLogger stores l inside the context
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext returns the logger stored in ctx, or fallback when none is set.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return Nop()
	}
	return fallback
}
