package logger

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
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = New(Config{})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestWrapWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core)).With(String("agency", "HHS"))

	l.Debug("hidden")
	l.Warn("skipped records", Int("count", 2), Error(errors.New("bad date")))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "skipped records", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "HHS", fields["agency"])
	assert.Equal(t, int64(2), fields["count"])
	assert.Equal(t, "bad date", fields["error"])
}
