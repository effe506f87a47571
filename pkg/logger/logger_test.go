package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	l := newLogger()

	formatter, ok := l.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
}

func TestGetLogger(t *testing.T) {
	t.Run("falls back to global logger", func(t *testing.T) {
		entry := G(context.Background())
		assert.Equal(t, L.Logger, entry.Logger)
	})

	t.Run("returns context logger", func(t *testing.T) {
		custom := logrus.NewEntry(logrus.New()).WithField("skill", "code-review")
		ctx := WithLogger(context.Background(), custom)

		entry := G(ctx)
		assert.Equal(t, "code-review", entry.Data["skill"])
	})

	t.Run("ignores foreign values", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), loggerKey{}, "not-a-logger")
		assert.Equal(t, L.Logger, G(ctx).Logger)
	})
}

func TestWithCommand(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	setLoggerFormat(l, "json")

	ctx := WithLogger(context.Background(), logrus.NewEntry(l))
	ctx = WithCommand(ctx, "git", []string{"merge-base", "main", "HEAD"})
	G(ctx).Debug("running command")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "git", entry["command"])
	assert.Equal(t, "running command", entry["message"])
	assert.Equal(t, "debug", entry["logLevel"])
	assert.Len(t, entry["args"], 3)
}

func TestConfigure(t *testing.T) {
	original := L.Logger.GetLevel()
	t.Cleanup(func() {
		L.Logger.SetLevel(original)
		setLoggerFormat(L.Logger, "text")
	})

	require.NoError(t, Configure("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, L.Logger.Formatter)

	require.NoError(t, Configure("", "text"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, L.Logger.Formatter)

	err := Configure("loud", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
