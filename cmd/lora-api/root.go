package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lora-api",
	Short: "Lora health API server",
	Long:  `A REST API server for the Lora health assistant: sample ingestion, daily aggregates, weekly trends and chat.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(trendsCmd)
}
