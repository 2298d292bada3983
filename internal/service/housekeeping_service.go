package service

import (
	"context"
	"fmt"
	"time"

	"task-reminder/internal/logger"
	"task-reminder/internal/model"
)

// HousekeepingStore is what the periodic maintenance jobs need from the task store.
type HousekeepingStore interface {
	SelectOverdueNonReminders(ctx context.Context, today string) ([]model.Task, error)
	Archive(ctx context.Context, ids []uint) (int64, error)
	PurgeOldSent(ctx context.Context, before time.Time) (int64, error)
}

// HousekeepingService archives stale tasks and removes delivered reminders.
type HousekeepingService struct {
	store     HousekeepingStore
	resolver  *DueTimeResolver
	clock     Clock
	retention time.Duration
}

func NewHousekeepingService(store HousekeepingStore, resolver *DueTimeResolver, clock Clock, retention time.Duration) *HousekeepingService {
	if clock == nil {
		clock = SystemClock()
	}
	return &HousekeepingService{store: store, resolver: resolver, clock: clock, retention: retention}
}

// ArchiveOverdue archives open plain tasks whose date is before the local today.
// Reminders are never touched here; they leave through delivery or cleanup.
func (s *HousekeepingService) ArchiveOverdue(ctx context.Context) (int64, error) {
	today := s.resolver.Today(s.clock.Now())

	tasks, err := s.store.SelectOverdueNonReminders(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("archive overdue: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	n, err := s.store.Archive(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("archive overdue: %w", err)
	}
	logger.Info("archived overdue tasks", "count", n, "before", today)
	return n, nil
}

// PurgeExpired deletes delivered reminders whose due time is older than the retention window.
func (s *HousekeepingService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)
	n, err := s.store.PurgeOldSent(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reminders: %w", err)
	}
	if n > 0 {
		logger.Info("purged delivered reminders", "count", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}
