package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logger, logger.WithStack("s").WithCommand("c").WithRequestID("r").WithField("k", "v"))
	require.NoError(t, logger.Flush(context.Background()))
	require.NoError(t, logger.Close())
}

func TestTestLogger_RecordsScopeAndRedacts(t *testing.T) {
	logger := NewTestLogger()

	scoped := logger.WithRequestID("req_1").WithStack("SampleMockApiStack").WithCommand("synth").WithField("k", "v")
	scoped.Info("hello\r\n", map[string]any{"x": "y", "x-api-key": "abc"})

	entries := logger.Entries()
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, "info", got.Level)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, "req_1", got.RequestID)
	assert.Equal(t, "SampleMockApiStack", got.Stack)
	assert.Equal(t, "synth", got.Command)
	assert.Equal(t, "v", got.Fields["k"])
	assert.Equal(t, "y", got.Fields["x"])
	assert.Equal(t, "[REDACTED]", got.Fields["x-api-key"])
}

func TestTestLogger_CloseStopsDerivedLoggers(t *testing.T) {
	logger := NewTestLogger()
	derived := logger.WithCommand("smoke")
	derived.Info("kept")

	require.NoError(t, logger.Close())
	derived.Info("dropped")
	logger.Error("dropped")

	assert.Equal(t, []string{"kept"}, logger.Messages(""))
}

func TestTestLogger_MessagesFiltersByLevel(t *testing.T) {
	logger := NewTestLogger()
	logger.Info("one")
	logger.Warn("two")
	logger.Info("three\n")

	assert.Equal(t, []string{"one", "three"}, logger.Messages("info"))
	assert.Len(t, logger.Messages(""), 3)
}

func TestTestLogger_DerivedLoggersAreIndependent(t *testing.T) {
	logger := NewTestLogger()
	logger.WithField("a", 1).Info("a")
	logger.WithField("b", 2).Info("b")

	entries := logger.Entries()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].Fields, "b")
	assert.NotContains(t, entries[1].Fields, "a")
}

func TestTestLogger_FlushReportsCanceledContext(t *testing.T) {
	logger := NewTestLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, logger.Flush(ctx), context.Canceled)
	require.NoError(t, logger.Flush(context.Background()))
}

func TestHooksFromLogger_MapsLevelsAndScopes(t *testing.T) {
	logger := NewTestLogger()
	hooks := HooksFromLogger(logger)
	require.NotNil(t, hooks.Log)

	hooks.Emit(EventRecord{
		Level:     "warn",
		Event:     "smoke.call_failed",
		Stack:     "SampleMockApiStack",
		RequestID: "req_1",
		Fields:    map[string]any{"status": 500},
		Err:       errors.New("unexpected status"),
	})
	hooks.Emit(EventRecord{Level: "error", Event: "e"})
	hooks.Emit(EventRecord{Level: "debug", Event: "d"})
	hooks.Emit(EventRecord{Event: "i"})

	entries := logger.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "smoke.call_failed", entries[0].Message)
	assert.Equal(t, "req_1", entries[0].RequestID)
	assert.Equal(t, "SampleMockApiStack", entries[0].Stack)
	assert.Equal(t, 500, entries[0].Fields["status"])
	assert.Equal(t, "unexpected status", entries[0].Fields["error"])
	assert.Equal(t, []string{"error", "debug", "info"}, []string{entries[1].Level, entries[2].Level, entries[3].Level})
}

func TestHooks_ZeroValueAndNilLogger(t *testing.T) {
	Hooks{}.Emit(EventRecord{Event: "ignored"})
	assert.Nil(t, HooksFromLogger(nil).Log)
}
