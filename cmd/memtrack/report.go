package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rwalder/memtrack/internal/series"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report FILE...",
		Short: "Summarize one or more recorded series",
		Long: `Report loads each series file, strips its termination markers and
prints the peak memory, total duration and sample count per run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tOUTCOME\tPEAK\tTOOK\tSAMPLES")

			for _, path := range args {
				report, err := series.Load(path)
				if err != nil {
					return err
				}
				summary := report.Summarize()

				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					summary.Path,
					summary.Outcome,
					humanize.Bytes(gbToBytes(summary.PeakRAM)),
					formatTook(summary.Took),
					humanize.Comma(int64(summary.Count)),
				)
			}

			return tw.Flush()
		},
	}
}

// gbToBytes converts the persisted GB figure to SI bytes for display.
func gbToBytes(gb float64) uint64 {
	if gb <= 0 {
		return 0
	}
	return uint64(gb * 1e9)
}

func formatTook(took time.Duration) string {
	switch {
	case took >= time.Minute:
		return took.Round(time.Second).String()
	case took >= time.Second:
		return took.Round(time.Millisecond).String()
	default:
		return took.Round(time.Microsecond).String()
	}
}
