package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rwalder/memtrack/internal/config"
	"github.com/rwalder/memtrack/internal/version"
)

func newRootCmd(logger *slog.Logger, cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "memtrack",
		Short: "Track the memory and wall-clock time of a workload",
		Long: `memtrack records a memory usage time series while an arbitrary
command runs, persisting it as a delta,ram CSV with a termination marker
that distinguishes successful completion, graceful failures and abrupt
crashes such as OOM kills.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger, cfg))
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "memtrack %s", info.Version)
			if info.Commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", info.Commit)
			}
			if info.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " built %s", info.BuildTime)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		},
	}
}
