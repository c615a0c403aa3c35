// Package cli implements the liveshop command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "liveshop",
	Short: "Realtime backend for live-commerce sellers",
	Long: `liveshop runs the realtime core of the live-commerce backend:
authenticated websocket fan-out of domain events to sellers, the
credit-gated action ledger, and the notification retry sweep.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config TOML (default: built-in defaults)")
}
