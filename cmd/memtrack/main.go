package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/rwalder/memtrack/internal/config"
	"github.com/rwalder/memtrack/internal/version"
)

var (
	buildVersion = "dev"
	buildCommit  = ""
	buildTime    = ""
)

// exitCodeError carries a specific process exit status to main.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func main() {
	version.Set(version.Info{
		Version:   buildVersion,
		Commit:    buildCommit,
		BuildTime: buildTime,
	})

	// Optional .env next to the binary; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		handler := tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError})
		slog.New(handler).Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger, cfg)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(logger, err))
	}
}

// exitCode maps command errors to the process exit status: a tracked
// child's own exit code is propagated unchanged.
func exitCode(logger *slog.Logger, err error) int {
	var coded exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Error("tracked command failed", "exit_code", exitErr.ExitCode())
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return 1
	}

	logger.Error("command failed", "err", err)
	return 1
}
