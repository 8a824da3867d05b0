// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Progression
//
//   - Clock: Source of "now" for streaks, cooldowns and timestamps (internal/progression/clock.go)
//   - Dispatcher: Receives committed notification ids (internal/progression/tx.go)
//
// ## Task Queue
//
//   - Enqueuer: Adds tasks to the backlite queue (internal/tasks/deliver_notification.go)
//   - NotificationStore: Loads and marks notifications (internal/tasks/deliver_notification.go)
//   - Deliverer: Pushes a notification to a channel (internal/tasks/deliver_notification.go)
//   - DriftFinder: Finds accounts whose balance drifted (internal/tasks/reconcile_ledger.go)
//   - NotificationCleaner: Purges delivered notifications (internal/tasks/cleanup_notifications.go)
//
// # Adding a Delivery Channel
//
// LogDeliverer and RedisDeliverer (REDIS_ADDR) ship with the worker. To add another:
//
//  1. Implement Deliverer in internal/tasks/
//
//     type PushDeliverer struct {
//         client *push.Client
//     }
//
//     func (d *PushDeliverer) Deliver(ctx context.Context, n *entities.Notification) error
//
//     var _ Deliverer = (*PushDeliverer)(nil)
//
//  2. Select it in Runtime.newDeliverer in entrypoint.go
//
// # Adding a New Achievement Type
//
//  1. Add the type constant in internal/entities/achievement.go
//  2. Extend progression.Metrics and its value switch
//  3. Add catalog rows in internal/database/database.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
