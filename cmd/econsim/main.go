// econsim runs the hamlet settlement economy.
//
// Usage:
//
//	econsim run                - Run the live economy with the HTTP API
//	econsim simulate --ticks N - Run N ticks headless and print a summary
//	econsim report             - Show recent tick reports from the database
//
// Global flags:
//
//	--config <path>     - Economy YAML (default: ~/.hamlet/economy.yaml or embedded)
//	--db <path>         - SQLite database path (default: data/hamlet.db)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "econsim",
	Short: "Hamlet - a tick-driven settlement economy",
	Long: `econsim runs a small settlement economy: producers turn resources
into goods, houses consume them, and houses that stay supplied upgrade.

Available commands:
  run       - Run the live economy with the HTTP API
  simulate  - Run a fixed number of ticks headless
  report    - Show recent tick reports from the database

Examples:
  econsim run --speed 10
  econsim simulate --ticks 240
  econsim report --limit 20`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(flagLogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to economy YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "data/hamlet.db", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(reportCmd)
}
