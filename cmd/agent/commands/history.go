package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/navid-fn/fareradar/internal/storage"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 10, "How many runs to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>]",
	Short: "Lists the latest archived runs of the configured route.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.DataDir, logger)
		if err != nil {
			return err
		}

		runs, err := store.History.Query(cmd.Context(), cfg.Criteria.RouteKey(), *historyLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tOFFERS\tCHEAPEST\tFAILED")
		for _, run := range runs {
			cheapest := "-"
			if len(run.Offers) > 0 {
				low := run.Offers[0].Price
				for _, o := range run.Offers[1:] {
					if o.Price.Currency == low.Currency && o.Price.Amount.LessThan(low.Amount) {
						low = o.Price
					}
				}
				cheapest = low.String()
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%v\n", run.ID, len(run.Offers), cheapest, run.FailedSources)
		}
		return w.Flush()
	},
}
