package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })

	SetLevel(LevelError)
	assert.False(t, level.Enabled(zapcore.InfoLevel))
	assert.True(t, level.Enabled(zapcore.ErrorLevel))

	SetLevel(LevelDebug)
	assert.True(t, level.Enabled(zapcore.DebugLevel))
}

func TestKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	t.Cleanup(Replace(zap.New(core)))

	Info("calendar refreshed", "source", "team", "events", 3)
	Error("fetch failed", errors.New("boom"), "source", "team", "dangling")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "calendar refreshed", entries[0].Message)
	assert.Equal(t, map[string]any{"source": "team", "events": int64(3)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["err"])
	assert.NotContains(t, entries[1].ContextMap(), "dangling")
}

func TestConfigure(t *testing.T) {
	require.NoError(t, Configure(Options{Development: true, Level: LevelDebug}))
	t.Cleanup(func() { SetLevel(LevelInfo) })
	assert.True(t, level.Enabled(zapcore.DebugLevel))
	Debug("configured")
}
