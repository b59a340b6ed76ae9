package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel(" error "))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewToWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	NewTo(&buf).Info("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "searchcal", entry["service"])
	require.Equal(t, "v", entry["k"])
}
