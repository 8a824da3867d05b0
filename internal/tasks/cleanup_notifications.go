package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readquest/internal/logger"
)

// NotificationCleaner deletes delivered notifications.
type NotificationCleaner interface {
	DeleteDeliveredBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupNotificationsTask removes delivered notifications older than the retention period.
type CleanupNotificationsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for notification cleanup tasks.
func (t CleanupNotificationsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_notifications",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupNotificationsProcessor creates a processor function for CleanupNotificationsTask.
func CleanupNotificationsProcessor(cleaner NotificationCleaner, log *logger.Logger) backlite.QueueProcessor[CleanupNotificationsTask] {
	if log == nil {
		log = logger.NewNop()
	}
	return func(ctx context.Context, task CleanupNotificationsTask) error {
		if cleaner == nil {
			return fmt.Errorf("notification cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 30
		}
		before := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

		deleted, err := cleaner.DeleteDeliveredBefore(ctx, before)
		if err != nil {
			return fmt.Errorf("cleanup notifications: %w", err)
		}

		log.Info("cleaned up delivered notifications", "deleted", deleted, "retention_days", retentionDays)
		return nil
	}
}

// NewCleanupNotificationsQueue creates a backlite queue for notification cleanup tasks.
func NewCleanupNotificationsQueue(cleaner NotificationCleaner, log *logger.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupNotificationsProcessor(cleaner, log))
}
