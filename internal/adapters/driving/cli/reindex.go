package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lectern-labs/lectern/internal/logger"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the mirror store",
	Long: `Re-derives every search document from the mirrored series and events,
replacing the index wholesale. Use after an index corruption or an
index schema change.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Section("Reindex")
	cmd.Println("Rebuilding search index...")
	if err := app.indexer.Rebuild(ctx); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Println("Search index rebuilt.")
	return nil
}
