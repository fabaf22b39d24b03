// Package logging exposes the structured file logger behind a small interface
// so that components can be handed a no-op or recording logger in tests.
package logging

import (
	"context"

	"github.com/LixenWraith/logger"
)

// Logger is the subset of the structured logger used by the relay components.
// Arguments after msg are key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// Init starts the package-level file logger. Callers must pair it with Shutdown.
func Init(ctx context.Context, cfg *logger.Config) error {
	return logger.Init(ctx, cfg)
}

// Shutdown flushes and closes the file logger.
func Shutdown(ctx context.Context) error {
	return logger.Shutdown(ctx)
}

type fileLogger struct{}

// Default returns a Logger writing through the initialized file logger.
func Default() Logger { return fileLogger{} }

func (fileLogger) Debug(ctx context.Context, msg string, args ...any) { logger.Debug(ctx, msg, args...) }
func (fileLogger) Info(ctx context.Context, msg string, args ...any) { logger.Info(ctx, msg, args...) }
func (fileLogger) Warn(ctx context.Context, msg string, args ...any) { logger.Warn(ctx, msg, args...) }
func (fileLogger) Error(ctx context.Context, msg string, args ...any) { logger.Error(ctx, msg, args...) }

type nop struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Debug(context.Context, string, ...any) {}
func (nop) Info(context.Context, string, ...any) {}
func (nop) Warn(context.Context, string, ...any) {}
func (nop) Error(context.Context, string, ...any) {}
