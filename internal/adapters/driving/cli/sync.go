package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lectern-labs/lectern/internal/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise once and exit",
	Long: `Harvests the external video system until it reports no further
changes, indexes the applied changes, then exits. Useful for initial
population and for cron-style setups without the long-running daemon.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	daemon, err := app.requireDaemon()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Section("Harvest")
	cmd.Println("Synchronising...")
	if err := daemon.RunOnce(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status := daemon.Status()
	cmd.Printf("Applied %d records in %d batches (cursor %s).\n",
		status.RecordsApplied, status.BatchesApplied, status.Cursor)
	return nil
}
