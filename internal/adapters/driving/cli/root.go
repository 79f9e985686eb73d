// Package cli wires the application together and exposes it as cobra
// commands: the long-running server, a one-shot sync, and an index
// rebuild.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern-labs/lectern/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	dataDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Video portal backend",
	Long: `Lectern mirrors series and events from an external video system and
serves them on a tree of editable pages with full-text search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.lectern/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory (default ~/.lectern/data)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
