package main

import (
	"errors"

	"use_of_force/internal/infra/database/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApplication(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return migrate(a)
	},
}

func migrate(a *application) error {
	if a.db == nil {
		return errors.New("migrations need the postgres store backend")
	}
	gdb, err := migrations.OpenGorm(a.db)
	if err != nil {
		return err
	}
	return migrations.RunMigrations(gdb, a.log)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
