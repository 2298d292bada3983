package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"task-reminder/internal/bot"
	httpapi "task-reminder/internal/http"
	"task-reminder/internal/logger"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.TelegramToken == "" {
			return errors.New("TELEGRAM_TOKEN is required")
		}
		ctx := cmd.Context()

		db, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		taskRepo := repository.NewTaskRepository(db)
		loc := cfg.Location()
		resolver := service.NewDueTimeResolver(loc, cfg.NotifyTasks)
		taskSvc := service.NewTaskService(taskRepo, resolver, nil)

		api, err := bot.NewAPI(cfg.TelegramToken, "")
		if err != nil {
			return err
		}
		notifier := bot.NewTelegramNotifier(api)

		reminders := service.NewReminderService(taskRepo, notifier, service.ReminderOptions{
			Location:  loc,
			SendDelay: cfg.SendDelay,
			Retry:     service.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, Backoff: cfg.RetryBackoff},
		})
		housekeeping := service.NewHousekeepingService(taskRepo, resolver, nil, cfg.Retention)

		scheduler := service.NewSchedulerService(loc)
		if err := registerJobs(ctx, scheduler, reminders, housekeeping); err != nil {
			return err
		}

		startupDone := make(chan struct{})
		go func() {
			defer close(startupDone)
			if _, err := reminders.RunStartupPass(ctx); err != nil {
				logger.Error("startup reminder pass", "error", err)
			}
		}()
		scheduler.Start()

		e := httpapi.NewServer(httpapi.NewHandler(taskSvc), cfg.RateLimit)
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server stopped", "error", err)
			}
		}()

		users := repository.NewUserRepository(db)
		telegramBot := bot.New(api, taskSvc, users, cfg.WebAppURL)
		botDone := make(chan struct{})
		go func() {
			defer close(botDone)
			if err := telegramBot.Start(ctx); err != nil {
				logger.Error("bot stopped", "error", err)
			}
		}()

		notifier.NotifyAdmin(ctx, cfg.AdminID)
		known, err := users.Count(ctx)
		if err != nil {
			logger.Warn("count users", "error", err)
		}
		logger.Info("task reminder started",
			"poll_interval", cfg.PollInterval.String(),
			"tz", loc.String(),
			"notify_tasks", cfg.NotifyTasks,
			"jobs", scheduler.Entries(),
			"users", known,
		)

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown", "error", err)
		}
		scheduler.Stop()
		reminders.Stop()

		for _, done := range []<-chan struct{}{startupDone, botDone} {
			select {
			case <-done:
			case <-shutdownCtx.Done():
				logger.Warn("shutdown timed out")
			}
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func registerJobs(ctx context.Context, scheduler *service.SchedulerService, reminders *service.ReminderService, housekeeping *service.HousekeepingService) error {
	deliver := service.Job(ctx, "deliver reminders", 0, func(ctx context.Context) error {
		_, err := reminders.RunCycle(ctx)
		return err
	})
	if _, err := scheduler.ScheduleInterval(cfg.PollInterval, deliver); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	archive := service.Job(ctx, "archive overdue", time.Minute, func(ctx context.Context) error {
		_, err := housekeeping.ArchiveOverdue(ctx)
		return err
	})
	if _, err := scheduler.ScheduleInterval(cfg.ArchiveInterval, archive); err != nil {
		return fmt.Errorf("schedule archival: %w", err)
	}

	purge := service.Job(ctx, "purge reminders", time.Minute, func(ctx context.Context) error {
		_, err := housekeeping.PurgeExpired(ctx)
		return err
	})
	if _, err := scheduler.ScheduleDaily(cfg.CleanupAt, purge); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
