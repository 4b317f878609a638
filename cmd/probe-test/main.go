// Command probe-test is a small diagnostic harness for the meminfo
// probe: it prints current usage once, or watches it at a fixed
// interval.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rwalder/memtrack/internal/meminfo"
)

type options struct {
	procRoot   string
	watch      time.Duration
	count      int
	jsonOutput bool
}

func parseFlags() options {
	defaultProc := envOrDefault("MEMTRACK_PROC_ROOT", "/proc")

	var opts options
	flag.StringVar(&opts.procRoot, "proc", defaultProc, "Path to procfs root")
	flag.DurationVar(&opts.watch, "watch", 0, "Keep measuring at this interval (0 = once)")
	flag.IntVar(&opts.count, "count", 10, "Number of measurements in watch mode")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Emit measurements as JSON")
	flag.Parse()
	return opts
}

type measurement struct {
	Timestamp time.Time `json:"ts"`
	UsedGB    float64   `json:"used_gb"`
}

func main() {
	opts := parseFlags()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	probe := meminfo.NewProbe(opts.procRoot)
	if err := probe.Supported(); err != nil {
		logger.Error("memory accounting source unavailable", "err", err)
		os.Exit(1)
	}

	iterations := 1
	if opts.watch > 0 {
		iterations = opts.count
	}

	enc := json.NewEncoder(os.Stdout)
	for i := 0; i < iterations; i++ {
		if i > 0 {
			time.Sleep(opts.watch)
		}

		used, err := probe.Measure()
		if err != nil {
			logger.Error("measurement failed", "err", err)
			os.Exit(1)
		}

		if opts.jsonOutput {
			if err := enc.Encode(measurement{Timestamp: time.Now().UTC(), UsedGB: used}); err != nil {
				logger.Error("encode measurement", "err", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("%s used: %.3f GB\n", time.Now().UTC().Format(time.RFC3339), used)
		}
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
