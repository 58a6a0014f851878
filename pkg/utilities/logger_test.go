package utilities

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_DEV", "")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("LOG_DEV")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Level)
	require.False(t, cfg.Dev)

	t.Setenv("LOG_DEV", "1")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Level)
}

func TestLevelFromString(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	require.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	require.Equal(t, zapcore.ErrorLevel, levelFromString("error"))
	require.Equal(t, zapcore.InfoLevel, levelFromString("verbose"))
}

func TestInitWithRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	lg, err := Init(Config{Level: "info", File: path, MaxAge: time.Hour})
	require.NoError(t, err)
	lg.Info("hello from the file sink")
	_ = lg.Sync()

	// path is a symlink to the current dated file
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "hello from the file sink")

	lg.Debug("below level")
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(b), "below level")
}
