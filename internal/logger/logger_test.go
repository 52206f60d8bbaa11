package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	assert.False(t, FromEnv().Enabled(t.Context(), slog.LevelError))

	t.Setenv(EnvVar, "1")
	assert.True(t, FromEnv().Enabled(t.Context(), slog.LevelDebug))
}

func TestInitWritesJSONFile(t *testing.T) {
	t.Setenv(EnvVar, "")
	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	t.Cleanup(func() { _ = Init(Options{}) })

	L.Info("chunk created", "slice", 64)
	L.Debug("below level")

	name := logPrefix + time.Now().Format("2006-01-02") + logSuffix
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"chunk created"`)
	assert.Contains(t, string(data), `"slice":64`)
	assert.NotContains(t, string(data), "below level")
}

func TestDiscardSkipsEveryLevel(t *testing.T) {
	l := Discard()
	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		assert.False(t, l.Enabled(t.Context(), lvl), "level %v", lvl)
	}
}

func TestPackageHelpersUseL(t *testing.T) {
	t.Setenv(EnvVar, "")
	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir, Level: slog.LevelDebug}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Debug("d-msg")
	Info("i-msg")
	Warn("w-msg", "block", 4096)
	Error("e-msg")

	name := logPrefix + time.Now().Format("2006-01-02") + logSuffix
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	for _, want := range []string{"d-msg", "i-msg", `"block":4096`, "e-msg", `"level":"WARN"`} {
		assert.Contains(t, string(data), want)
	}
}

func TestInitDisabledDiscards(t *testing.T) {
	t.Setenv(EnvVar, "")
	require.NoError(t, Init(Options{Enabled: false}))
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	files := map[string]bool{ // name -> should survive
		"slabctl-2024-01-01.log": false,
		"slabctl-2024-02-20.log": true,
		"slabctl-garbage.log":    true,
		"other-2023-01-01.log":   true,
	}
	for name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	cleanOldLogs(dir, now)

	for name, keep := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if keep {
			assert.NoError(t, err, name)
		} else {
			assert.True(t, os.IsNotExist(err), name)
		}
	}
}
