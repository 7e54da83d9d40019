// Package main is the entry point for the harvestctl CLI, a client for the
// scholar harvest service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the harvestctl CLI.
var rootCmd = &cobra.Command{
	Use:   "harvestctl",
	Short: "Client for the scholar harvest service",
	Long: `harvestctl drives a scholar harvest service instance: it submits a
Google Scholar harvest, follows the live progress stream, and downloads the
resulting CSV artifact.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "base URL of the harvest service")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
