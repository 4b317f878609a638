// Package app wires up and runs a tracked workload.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rwalder/memtrack/internal/config"
	"github.com/rwalder/memtrack/internal/httpserver"
	"github.com/rwalder/memtrack/internal/metrics"
	"github.com/rwalder/memtrack/internal/tracker"
)

const shutdownTimeout = 10 * time.Second

// RunSpec describes the workload to execute under tracking.
type RunSpec struct {
	// SeriesPath is where the memory time series is persisted.
	SeriesPath string
	// Argv is the child command and its arguments.
	Argv []string
	// Stdout and Stderr receive the child's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the workload between tracker start and stop, optionally
// serving metrics/pprof while it runs. The child's error is returned
// unchanged once teardown has completed; a non-zero exit is the
// graceful-failure case and yields the -1,-1 sentinel in the series.
func Run(ctx context.Context, baseLogger *slog.Logger, cfg config.Config, spec RunSpec) error {
	appLogger := baseLogger.With("component", "app")

	if len(spec.Argv) == 0 {
		return fmt.Errorf("no command to track")
	}

	mets := metrics.NewSampler()

	var srv *httpserver.Server
	if cfg.EnablePrometheus || cfg.EnablePprof {
		srv = httpserver.New(cfg, baseLogger.With("component", "http"), mets)
		go func() {
			if err := srv.Start(); err != nil {
				appLogger.Warn("debug server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Warn("debug server shutdown", "err", err)
			}
		}()
	}

	opts := tracker.Options{
		EndDelay:          cfg.EndDelay,
		Calibrate:         cfg.Calibrate,
		CalibrationWindow: cfg.CalibrationWindow,
		StartDelay:        cfg.StartDelay,
		ProcRoot:          cfg.ProcRoot,
		Logger:            baseLogger,
		Metrics:           mets,
	}

	trk, err := tracker.New(spec.SeriesPath, opts)
	if err != nil {
		return err
	}

	appLogger.Info("tracking command", "argv", spec.Argv, "series", spec.SeriesPath)

	return trk.Track(func() error {
		cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
		cmd.Stdout = spec.Stdout
		cmd.Stderr = spec.Stderr
		return cmd.Run()
	})
}
