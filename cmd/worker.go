package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-storefront/internal/housekeeping"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the background jobs that expire abandoned checkout sessions and lapsed memberships.`,
}

var sweeperWorkerCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Start the session and membership sweeper",
	Run: func(cmd *cobra.Command, args []string) {
		startSweeper()
	},
}

var (
	sweepInterval time.Duration
	sweepBatch    int
)

func startSweeper() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	interval := app.Config.Checkout.SweepInterval
	if sweepInterval > 0 {
		interval = sweepInterval
	}

	sweeper := housekeeping.NewSweeper(app.Sessions, app.Memberships, app.Bus, interval, getIntFlag(sweepBatch, app.Config.Checkout.SweepBatch), app.Logger)

	app.Logger.Info("sweeper is running. Press Ctrl+C to stop.", "interval", interval)
	if err := sweeper.Run(ctx); err != nil {
		app.Logger.Error("sweeper stopped with error", "error", err)
	}
	app.Logger.Info("sweeper shutdown complete")
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	sweeperWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "Sweep interval such as 1m (overrides config)")
	sweeperWorkerCmd.Flags().IntVar(&sweepBatch, "batch", 0, "Sessions expired per batch (overrides config)")

	workerCmd.AddCommand(sweeperWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
