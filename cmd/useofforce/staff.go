package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage the staff involved in a submitted report",
}

var staffAddCmd = &cobra.Command{
	Use:   "add <report-id> <username>",
	Short: "Request a statement from another member of staff",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0], "report")
		if err != nil {
			return err
		}
		return withApplication(cmd, func(a *application) error {
			st, err := a.staff.AddInvolvedStaff(cmd.Context(), reportID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "statement %d requested from %s, overdue %s\n",
				st.ID, st.UserID, st.OverdueDate.Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var staffRemoveCmd = &cobra.Command{
	Use:   "remove <report-id> <statement-id>",
	Short: "Remove a statement from a report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0], "report")
		if err != nil {
			return err
		}
		statementID, err := parseID(args[1], "statement")
		if err != nil {
			return err
		}
		return withApplication(cmd, func(a *application) error {
			if err := a.staff.RemoveInvolvedStaff(cmd.Context(), reportID, statementID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "statement %d removed\n", statementID)
			return nil
		})
	},
}

var staffSubmitCmd = &cobra.Command{
	Use:   "submit <report-id> <username>",
	Short: "Mark a member of staff's statement as submitted",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0], "report")
		if err != nil {
			return err
		}
		return withApplication(cmd, func(a *application) error {
			if err := a.staff.SubmitStatement(cmd.Context(), reportID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "statement from %s submitted\n", args[1])
			return nil
		})
	},
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

// withApplication wires the application for a one-shot command, runs fn and closes it again.
func withApplication(cmd *cobra.Command, fn func(a *application) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requirePersistentStore(cfg, cmd.CommandPath()); err != nil {
		return err
	}
	a, err := newApplication(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func init() {
	staffCmd.AddCommand(staffAddCmd, staffRemoveCmd, staffSubmitCmd)
	rootCmd.AddCommand(staffCmd)
}
