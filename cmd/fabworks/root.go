package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fabworks",
	Short: "Agent gateway for work-item tracking and Power BI generation",
	Long: `Fabworks routes natural-language requests to task-specific agents:
a work-item agent for the tracker (features, stories, tasks, bulk state
changes), a requirements agent that turns a statement of work into a
requirements document, and a generator agent that scaffolds a Power BI
project from a discovered database schema.

With no arguments, launches an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
