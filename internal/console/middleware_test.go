package console

import (
	"context"
	"io"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zctx.Base(context.Background(), zap.New(core)), logs
}

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, cmd string, run Action) error {
				calls = append(calls, name)
				return next(ctx, cmd, run)
			}
		}
	}

	h := Wrap(Run, mark("outer"), mark("inner"))
	require.NoError(t, h(context.Background(), "x", func(context.Context) error {
		calls = append(calls, "action")
		return nil
	}))
	assert.Equal(t, []string{"outer", "inner", "action"}, calls)
}

func TestRecovery(t *testing.T) {
	ctx, logs := observed(zapcore.ErrorLevel)
	h := Wrap(Run, Recovery())

	err := h(ctx, "product.add", func(context.Context) error {
		panic("boom")
	})
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "boom")

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "product.add", entries[0].ContextMap()["command"])

	require.NoError(t, h(ctx, "product.list", func(context.Context) error { return nil }))
}

func TestCommandID(t *testing.T) {
	var ids []string
	h := Wrap(Run, CommandID())
	for range 2 {
		require.NoError(t, h(context.Background(), "x", func(ctx context.Context) error {
			ids = append(ids, CommandIDFromContext(ctx))
			return nil
		}))
	}
	require.Len(t, ids, 2)
	assert.Len(t, ids[0], 36)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Empty(t, CommandIDFromContext(context.Background()))
}

func TestLogCommands(t *testing.T) {
	ctx, logs := observed(zapcore.DebugLevel)
	h := Wrap(Run, CommandID(), LogCommands())

	require.NoError(t, h(ctx, "order.list", func(context.Context) error { return nil }))
	require.Error(t, h(ctx, "order.validate", func(context.Context) error { return errors.New("nope") }))
	require.ErrorIs(t, h(ctx, "order.cancel", func(context.Context) error { return io.EOF }), io.EOF)

	done := logs.FilterMessage("Command done").All()
	require.Len(t, done, 1)
	assert.Equal(t, "order.list", done[0].ContextMap()["command"])
	assert.NotEmpty(t, done[0].ContextMap()["command_id"])

	failed := logs.FilterMessage("Command failed").All()
	require.Len(t, failed, 1, "end of input is not a failure")
	assert.Equal(t, "order.validate", failed[0].ContextMap()["command"])
}

func TestTrace(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	h := Wrap(Run, CommandID(), Trace(tp))

	require.NoError(t, h(context.Background(), "product.add", func(context.Context) error { return nil }))
	require.Error(t, h(context.Background(), "order.validate", func(context.Context) error {
		return errors.New("insufficient stock")
	}))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "console.product.add", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "console.order.validate", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "insufficient stock", spans[1].Status().Description)

	var hasID bool
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "shop.command_id" {
			hasID = kv.Value.AsString() != ""
		}
	}
	assert.True(t, hasID)
}
