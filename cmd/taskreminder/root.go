package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"task-reminder/internal/config"
	"task-reminder/internal/logger"
	"task-reminder/internal/repository"
)

// cfg is loaded once before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "taskreminder",
	Short:         "Task and reminder tracker with Telegram delivery",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded

		logCfg := logger.DefaultConfig()
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.Output = cfg.Log.Output
		logCfg.FilePath = cfg.Log.File
		if err := logger.Init(logCfg); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		return nil
	},
}

// openStore opens the database. Failing to reach it is the only fatal startup error.
func openStore() (*gorm.DB, func(), error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}
