package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run the statement reminder job once and print how many reminders were sent",
	Long: `Runs a single reminder pass, for deployments where an external scheduler
triggers the job instead of the built-in cron. Safe to run alongside other instances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(a *application) error {
			sent, err := a.scheduler.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d reminders sent\n", sent)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(remindCmd)
}
