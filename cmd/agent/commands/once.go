package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(onceCmd)
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Runs a single search, archives it and exits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newAgent(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := a.pipeline.RunOnce(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s: %d offers, failed sources %v\n", report.Run.ID, len(report.Run.Offers), report.Run.FailedSources)
		if report.Series.Min != nil {
			fmt.Fprintf(out, "min %s %s, trend %s\n", report.Series.Min.StringFixed(2), report.Series.Currency, report.Series.Trend)
		}
		if report.Analysis.Absent() {
			fmt.Fprintf(out, "analysis absent: %s\n", report.Analysis.Reason)
		} else {
			fmt.Fprintln(out, report.Analysis.Recommendation)
		}
		return nil
	},
}
