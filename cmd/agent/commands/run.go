package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/navid-fn/fareradar/configs"
	"github.com/navid-fn/fareradar/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the search once at startup and then every day at RUN_TIME.",
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

		hour, minute, err := configs.ParseClock(cfg.Schedule.RunTime)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := scheduler.New(scheduler.Config{
			Hour:         hour,
			Minute:       minute,
			Location:     cfg.Schedule.Location,
			PollInterval: cfg.Schedule.PollInterval,
		}, a.events, logger)

		err = sched.Run(ctx, func(ctx context.Context) error {
			_, err := a.pipeline.RunOnce(ctx)
			return err
		})
		logger.Info("Agent stopped")
		return err
	},
}
