// Package logging wraps zap with the process-wide structured logger used
// across the build and analysis pipelines.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log *zap.Logger
)

// Init builds the process-wide logger at the given level. Safe to call
// more than once; the last call wins.
func Init(level zapcore.Level) error {
	mu.Lock()
	defer mu.Unlock()

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = l
	return nil
}

func logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = zap.NewNop()
	}
	return log
}

func Info(msg string, fields ...zap.Field)  { logger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { logger().Warn(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { logger().Debug(msg, fields...) }
func Error(msg string, fields ...zap.Field) { logger().Error(msg, fields...) }

// Sync flushes any buffered log entries.
func Sync() error { return logger().Sync() }
