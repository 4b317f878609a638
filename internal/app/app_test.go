package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwalder/memtrack/internal/config"
	"github.com/rwalder/memtrack/internal/series"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	if runtime.GOOS != "linux" {
		t.Skip("tracked runs require the linux platform gate")
	}

	procRoot := t.TempDir()
	contents := "MemTotal: 8388608 kB\nMemFree: 4194304 kB\nBuffers: 102400 kB\nCached: 1048576 kB\nSlab: 204800 kB\n"
	require.NoError(t, os.WriteFile(filepath.Join(procRoot, "meminfo"), []byte(contents), 0o644))

	return config.Config{ProcRoot: procRoot}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunTracksSuccessfulCommand(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "run.csv")

	err := Run(context.Background(), discardLogger(), cfg, RunSpec{
		SeriesPath: path,
		Argv:       []string{"sh", "-c", "sleep 0.05"},
	})
	require.NoError(t, err)

	outcome, err := series.Classify(path)
	require.NoError(t, err)
	assert.Equal(t, series.Completed, outcome)
}

func TestRunTracksFailingCommand(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "run.csv")

	err := Run(context.Background(), discardLogger(), cfg, RunSpec{
		SeriesPath: path,
		Argv:       []string{"sh", "-c", "exit 3"},
	})
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())

	outcome, err := series.Classify(path)
	require.NoError(t, err)
	assert.Equal(t, series.CrashedGracefully, outcome)
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), discardLogger(), config.Config{}, RunSpec{
		SeriesPath: filepath.Join(t.TempDir(), "run.csv"),
	})
	assert.Error(t, err)
}
