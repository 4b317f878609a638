package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/proc", cfg.ProcRoot)
	assert.Equal(t, 5*time.Second, cfg.StartDelay)
	assert.Equal(t, 4*time.Second, cfg.EndDelay)
	assert.True(t, cfg.Calibrate)
	assert.Equal(t, 2*time.Second, cfg.CalibrationWindow)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.EnablePrometheus)
	assert.False(t, cfg.EnablePprof)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEMTRACK_PROC_ROOT", "/tmp/proc")
	t.Setenv("MEMTRACK_START_DELAY", "0s")
	t.Setenv("MEMTRACK_END_DELAY", "500ms")
	t.Setenv("MEMTRACK_CALIBRATE", "false")
	t.Setenv("MEMTRACK_CALIBRATION_WINDOW", "1s")
	t.Setenv("MEMTRACK_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("MEMTRACK_ENABLE_PROMETHEUS", "true")
	t.Setenv("MEMTRACK_ENABLE_PPROF", "true")
	t.Setenv("MEMTRACK_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/proc", cfg.ProcRoot)
	assert.Equal(t, time.Duration(0), cfg.StartDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.EndDelay)
	assert.False(t, cfg.Calibrate)
	assert.Equal(t, time.Second, cfg.CalibrationWindow)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.True(t, cfg.EnablePrometheus)
	assert.True(t, cfg.EnablePprof)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"MEMTRACK_START_DELAY":        "soon",
		"MEMTRACK_END_DELAY":          "-1s",
		"MEMTRACK_CALIBRATE":          "perhaps",
		"MEMTRACK_CALIBRATION_WINDOW": "0s",
		"MEMTRACK_ENABLE_PROMETHEUS":  "yep",
		"MEMTRACK_ENABLE_PPROF":       "nope",
		"MEMTRACK_LOG_LEVEL":          "loud",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
