package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/id"
)

func TestFromContext_EnrichesTraceAndUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), NewFromCore(core))
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext("trace-1", "req-1"))
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: id.New().String(), Username: "baker", Role: appctx.RoleKitchen})

	Info(ctx, "batch produced", "quantity", 12)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, appctx.RoleKitchen, fields["role"])
	assert.EqualValues(t, 12, fields["quantity"])
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewFromCore(core).WithComponent("outbox")

	l.Debugw("hidden")
	l.Infow("relayed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "outbox", logs.All()[0].ContextMap()["component"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
}
