package main

import (
	"github.com/spf13/cobra"

	"task-reminder/internal/logger"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive overdue tasks and purge old reminders once, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		resolver := service.NewDueTimeResolver(cfg.Location(), cfg.NotifyTasks)
		housekeeping := service.NewHousekeepingService(repository.NewTaskRepository(db), resolver, nil, cfg.Retention)

		ctx := cmd.Context()
		archived, err := housekeeping.ArchiveOverdue(ctx)
		if err != nil {
			return err
		}
		purged, err := housekeeping.PurgeExpired(ctx)
		if err != nil {
			return err
		}

		logger.Info("sweep finished", "archived", archived, "purged", purged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
