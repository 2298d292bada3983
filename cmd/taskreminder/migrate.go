package main

import (
	"github.com/spf13/cobra"

	"task-reminder/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// NewDB migrates on open.
		_, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		logger.Info("schema is up to date", "database", cfg.DatabaseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
