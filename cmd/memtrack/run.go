package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwalder/memtrack/internal/app"
	"github.com/rwalder/memtrack/internal/config"
)

func newRunCmd(logger *slog.Logger, cfg config.Config) *cobra.Command {
	var (
		output           string
		noCalibrate      bool
		startDelay       time.Duration
		endDelay         time.Duration
		calibrationWin   time.Duration
		enablePrometheus bool
		enablePprof      bool
		listenAddr       string
	)

	cmd := &cobra.Command{
		Use:   "run -o FILE -- command [args...]",
		Short: "Run a command while recording its memory time series",
		Long: `Run launches the given command with a background sampler attached.
The sampler adaptively coarsens its rate as the run grows longer, so
sub-second workloads keep near-continuous resolution while day-long
ones stay within a reasonable log size. A non-zero exit records the
graceful-failure marker and the child's exit code is propagated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg := cfg
			if cmd.Flags().Changed("start-delay") {
				runCfg.StartDelay = startDelay
			}
			if cmd.Flags().Changed("end-delay") {
				runCfg.EndDelay = endDelay
			}
			if cmd.Flags().Changed("calibration-window") {
				runCfg.CalibrationWindow = calibrationWin
			}
			if noCalibrate {
				runCfg.Calibrate = false
			}
			if enablePrometheus {
				runCfg.EnablePrometheus = true
			}
			if enablePprof {
				runCfg.EnablePprof = true
			}
			if cmd.Flags().Changed("listen-addr") {
				runCfg.ListenAddr = listenAddr
			}

			return app.Run(cmd.Context(), logger, runCfg, app.RunSpec{
				SeriesPath: output,
				Argv:       args,
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "memtrack.csv", "series file to write")
	cmd.Flags().BoolVar(&noCalibrate, "no-calibrate", false, "skip the ambient-memory calibration step")
	cmd.Flags().DurationVar(&startDelay, "start-delay", cfg.StartDelay, "sampler warm-up before the command starts")
	cmd.Flags().DurationVar(&endDelay, "end-delay", cfg.EndDelay, "post-run ambient measurement window")
	cmd.Flags().DurationVar(&calibrationWin, "calibration-window", cfg.CalibrationWindow, "ambient measurement window before the run")
	cmd.Flags().BoolVar(&enablePrometheus, "enable-prometheus", false, "expose sampler metrics while the run is active")
	cmd.Flags().BoolVar(&enablePprof, "enable-pprof", false, "expose pprof endpoints while the run is active")
	cmd.Flags().StringVar(&listenAddr, "listen-addr", cfg.ListenAddr, "debug server listen address")

	return cmd
}
