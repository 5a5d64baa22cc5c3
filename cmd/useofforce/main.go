package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "useofforce",
	Short: "Use of force statement lifecycle and reminder service",
	Long: `Tracks the statements involved staff owe on submitted use of force reports
and reminds them by email until each statement is in or overdue.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
