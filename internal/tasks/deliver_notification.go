package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readquest/internal/entities"
	"github.com/mrlokans/readquest/internal/logger"
)

// NotificationStore loads notifications and records their delivery.
type NotificationStore interface {
	GetByID(ctx context.Context, id uint) (*entities.Notification, error)
	MarkDelivered(ctx context.Context, id uint, at time.Time) (bool, error)
}

// Deliverer pushes one notification to the family's devices.
type Deliverer interface {
	Deliver(ctx context.Context, n *entities.Notification) error
}

// LogDeliverer "delivers" notifications by logging them. It is the default
// until a push or email channel is configured.
type LogDeliverer struct {
	Log *logger.Logger
}

func (d LogDeliverer) Deliver(_ context.Context, n *entities.Notification) error {
	d.Log.Info("notification delivered",
		"notification_id", n.ID,
		"account_id", n.AccountID,
		"type", n.Type,
		"title", n.Title,
	)
	return nil
}

// DeliverNotificationTask delivers one committed notification.
type DeliverNotificationTask struct {
	NotificationID uint `json:"notification_id"`
}

// Config returns the queue configuration for notification delivery tasks.
func (t DeliverNotificationTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "deliver_notification",
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DeliverNotificationProcessor creates a processor function for DeliverNotificationTask.
// Notifications that were already delivered are skipped, so redelivered
// tasks do not reach the family twice.
func DeliverNotificationProcessor(store NotificationStore, deliverer Deliverer, log *logger.Logger) backlite.QueueProcessor[DeliverNotificationTask] {
	if log == nil {
		log = logger.NewNop()
	}
	return func(ctx context.Context, task DeliverNotificationTask) error {
		if store == nil || deliverer == nil {
			return fmt.Errorf("notification delivery not configured")
		}

		n, err := store.GetByID(ctx, task.NotificationID)
		if err != nil {
			return fmt.Errorf("load notification %d: %w", task.NotificationID, err)
		}
		if n.DeliveredAt != nil {
			log.Debug("notification already delivered", "notification_id", n.ID)
			return nil
		}

		if err := deliverer.Deliver(ctx, n); err != nil {
			return fmt.Errorf("deliver notification %d: %w", n.ID, err)
		}
		if _, err := store.MarkDelivered(ctx, n.ID, time.Now()); err != nil {
			return fmt.Errorf("mark notification %d delivered: %w", n.ID, err)
		}
		return nil
	}
}

// NewDeliverNotificationQueue creates a backlite queue for notification delivery.
func NewDeliverNotificationQueue(store NotificationStore, deliverer Deliverer, log *logger.Logger) backlite.Queue {
	return backlite.NewQueue(DeliverNotificationProcessor(store, deliverer, log))
}

// Enqueuer adds tasks to the queue.
type Enqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// NotificationDispatcher enqueues a delivery task per committed notification.
type NotificationDispatcher struct {
	queue Enqueuer
}

func NewNotificationDispatcher(queue Enqueuer) *NotificationDispatcher {
	return &NotificationDispatcher{queue: queue}
}

func (d *NotificationDispatcher) Dispatch(_ context.Context, notificationIDs []uint) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	batch := make([]backlite.Task, 0, len(notificationIDs))
	for _, id := range notificationIDs {
		batch = append(batch, DeliverNotificationTask{NotificationID: id})
	}
	if _, err := d.queue.Add(batch...).Save(); err != nil {
		return fmt.Errorf("enqueue notification delivery: %w", err)
	}
	return nil
}
