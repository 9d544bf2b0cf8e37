package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	demoMode  bool
	plainMode bool
)

var rootCmd = &cobra.Command{
	Use:   "frontdesk",
	Short: "Chat-driven task agent front desk",
	Long: `Frontdesk takes requests in plain language, routes them to the right
task agent, and walks each run through confirmation, review checkpoints
and revisions while keeping a time/cost ledger.

With no arguments, launches the interactive chat.

Core capabilities:
- Routes free-text requests to agents via an intent classifier
- Asks for a go-ahead with a time/cost estimate before spending anything
- Pauses at review checkpoints for revisions, rollback, or cancellation
- Records finished runs and estimates future ones from that history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false, "Run with scripted agents and keyword routing (no API key needed)")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "Line-based console instead of the full-screen chat")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
