package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration sourced from environment variables.
type Config struct {
	ProcRoot          string
	StartDelay        time.Duration
	EndDelay          time.Duration
	Calibrate         bool
	CalibrationWindow time.Duration
	ListenAddr        string
	EnablePrometheus  bool
	EnablePprof       bool
	LogLevel          slog.Level
}

// Load parses configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		ProcRoot:          "/proc",
		StartDelay:        5 * time.Second,
		EndDelay:          4 * time.Second,
		Calibrate:         true,
		CalibrationWindow: 2 * time.Second,
		ListenAddr:        ":8080",
		EnablePrometheus:  false,
		EnablePprof:       false,
		LogLevel:          slog.LevelInfo,
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_PROC_ROOT")); value != "" {
		cfg.ProcRoot = value
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_START_DELAY")); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_START_DELAY: %w", err)
		}
		if duration < 0 {
			return Config{}, fmt.Errorf("MEMTRACK_START_DELAY must be >= 0")
		}
		cfg.StartDelay = duration
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_END_DELAY")); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_END_DELAY: %w", err)
		}
		if duration < 0 {
			return Config{}, fmt.Errorf("MEMTRACK_END_DELAY must be >= 0")
		}
		cfg.EndDelay = duration
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_CALIBRATE")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_CALIBRATE: %w", err)
		}
		cfg.Calibrate = enabled
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_CALIBRATION_WINDOW")); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_CALIBRATION_WINDOW: %w", err)
		}
		if duration <= 0 {
			return Config{}, fmt.Errorf("MEMTRACK_CALIBRATION_WINDOW must be > 0")
		}
		cfg.CalibrationWindow = duration
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_LISTEN_ADDR")); value != "" {
		cfg.ListenAddr = value
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_ENABLE_PROMETHEUS")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_ENABLE_PROMETHEUS: %w", err)
		}
		cfg.EnablePrometheus = enabled
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_ENABLE_PPROF")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_ENABLE_PPROF: %w", err)
		}
		cfg.EnablePprof = enabled
	}

	if value := strings.TrimSpace(os.Getenv("MEMTRACK_LOG_LEVEL")); value != "" {
		level, err := parseLogLevel(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMTRACK_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", input)
	}
}
