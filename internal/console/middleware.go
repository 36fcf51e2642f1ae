package console

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrPanic is returned for a command that panicked.
var ErrPanic = errors.New("command failed unexpectedly")

// Action is the body of one menu command.
type Action func(ctx context.Context) error

// Handler runs a named command.
type Handler func(ctx context.Context, name string, run Action) error

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Wrap applies middlewares so that the first one is the outermost.
func Wrap(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Run is the innermost Handler.
func Run(ctx context.Context, _ string, run Action) error {
	return run(ctx)
}

// commandIDKey is the context key for the command ID value.
type commandIDKey struct{}

// CommandIDFromContext extracts the command ID from the context.
// It returns an empty string if no command ID is present.
func CommandIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(commandIDKey{}).(string); ok {
		return id
	}
	return ""
}

// CommandID returns a middleware that gives every command a fresh UUID,
// stores it in the context, and adds it to the context logger.
func CommandID() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, name string, run Action) error {
			id := uuid.New().String()
			ctx = context.WithValue(ctx, commandIDKey{}, id)
			ctx = zctx.With(ctx, zap.String("command_id", id))
			return next(ctx, name, run)
		}
	}
}

// Recovery returns a middleware that recovers from panics, logs them with a
// stack trace, and reports ErrPanic so the menu keeps running.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, name string, run Action) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					zctx.From(ctx).Error("Panic recovered",
						zap.String("command", name),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					err = errors.Wrap(ErrPanic, fmt.Sprint(rec))
				}
			}()
			return next(ctx, name, run)
		}
	}
}

// LogCommands returns a middleware that logs every command with its
// duration. Failures are logged at warn level.
func LogCommands() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, name string, run Action) error {
			start := time.Now()
			err := next(ctx, name, run)

			lg := zctx.From(ctx).With(
				zap.String("command", name),
				zap.Duration("duration", time.Since(start)),
			)
			if err != nil && !closed(err) {
				lg.Warn("Command failed", zap.Error(err))
			} else {
				lg.Debug("Command done")
			}
			return err
		}
	}
}

// Trace returns a middleware that runs each command in its own span.
func Trace(tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer("github.com/xenking/shopledger/internal/console")
	return func(next Handler) Handler {
		return func(ctx context.Context, name string, run Action) error {
			ctx, span := tracer.Start(ctx, "console."+name,
				trace.WithAttributes(attribute.String("shop.command", name)),
			)
			defer span.End()

			if id := CommandIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("shop.command_id", id))
			}

			err := next(ctx, name, run)
			if err != nil && !closed(err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}
