package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rwalder/memtrack/internal/series"
)

func newClassifyCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Report how a recorded run ended",
		Long: `Classify inspects the terminal line of a series file and reports
whether the run completed successfully, crashed gracefully (a caught
error) or crashed ungracefully (no termination marker, e.g. an OOM
kill). The exit status is 0, 1 or 2 respectively.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := series.Classify(args[0])
			if err != nil {
				return err
			}

			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
			}

			if outcome != series.Completed {
				return exitCodeError{code: int(outcome)}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress output, signal the outcome via exit status only")

	return cmd
}
