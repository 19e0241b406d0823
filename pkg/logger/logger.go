// Package logger builds the zap.SugaredLogger instances passed around the
// rest of the module (writer.Config.Logger, storage.NewDirectoryStorage's
// log argument, and so on). Every subsystem logs through the logger it is handed rather than a
// package-level global, so tests can substitute zaptest loggers freely.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style JSON logger tagged with the given service
// name, suitable for the default entry points (pkg/cinder.Open and friends).
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap.NewProductionConfig().Build only fails on a malformed config,
		// which this function never produces; fall back to a no-op logger
		// rather than panicking on a dependency the caller didn't create.
		base = zap.NewNop()
	}
	return base.Sugar().Named(service)
}

// NewDevelopment builds a human-readable console logger, handy for tests and
// local debugging of the writer/merge/search pipeline.
func NewDevelopment(service string) *zap.SugaredLogger {
	base, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().Named(service)
}

// Nop returns a logger that discards everything, used where a subsystem is
// constructed without an explicit Logger (e.g. package-internal unit tests).
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
