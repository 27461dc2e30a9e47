package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"skontokit/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "skonto",
	Short: "Skonto CLI - early-payment discount tooling for invoices",
	Long: `Skonto CLI works out early-payment (Skonto) discounts on invoices.

It extracts discount terms from PDF invoices via Google Document AI or
Vision OCR, recalculates amounts, percentage, due date and remaining days
as they are edited, and can export confirmed payment decisions to a
Google Sheet for the accounting audit trail.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to Skonto CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
