package entrypoint

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/database"
	"github.com/mrlokans/readquest/internal/database/ledger"
	"github.com/mrlokans/readquest/internal/database/notifications"
	"github.com/mrlokans/readquest/internal/logger"
	"github.com/mrlokans/readquest/internal/progression"
	"github.com/mrlokans/readquest/internal/scheduler"
	"github.com/mrlokans/readquest/internal/tasks"
)

// redeliverBatch bounds how many pending notifications are re-enqueued at startup.
const redeliverBatch = 500

// Runtime holds the wired services of one process.
type Runtime struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *database.Database
	Tasks  *tasks.Client
	Engine *progression.Engine

	notifications *notifications.Repository
	redis         *tasks.RedisDeliverer
}

// NewRuntime opens the store and the task queue and builds a progression
// engine whose notifications are delivered through the queue.
func NewRuntime(cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rt := &Runtime{
		Config:        cfg,
		Log:           log,
		DB:            db,
		notifications: notifications.NewRepository(db.DB),
	}

	opts := []progression.Option{progression.WithLogger(log)}
	if cfg.Tasks.Enabled {
		rt.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.FromAppConfig(cfg.Tasks), log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		deliverer, err := rt.newDeliverer()
		if err != nil {
			rt.Tasks.Close()
			db.Close()
			return nil, fmt.Errorf("failed to initialize notification delivery: %w", err)
		}
		rt.Tasks.Register(
			tasks.NewDeliverNotificationQueue(rt.notifications, deliverer, log),
			tasks.NewReconcileLedgerQueue(ledger.NewRepository(db.DB), log),
			tasks.NewCleanupNotificationsQueue(rt.notifications, log),
		)
		opts = append(opts, progression.WithDispatcher(tasks.NewNotificationDispatcher(rt.Tasks)))
	}

	rt.Engine = progression.New(db.DB, cfg.Progression, opts...)
	return rt, nil
}

// newDeliverer publishes through Redis when REDIS_ADDR is set and logs otherwise.
func (rt *Runtime) newDeliverer() (tasks.Deliverer, error) {
	if rt.Config.Delivery.RedisAddr == "" {
		return tasks.LogDeliverer{Log: rt.Log.With("component", "delivery")}, nil
	}
	d, err := tasks.NewRedisDeliverer(context.Background(), rt.Config.Delivery.RedisAddr, rt.Config.Delivery.ChannelPrefix, rt.Log)
	if err != nil {
		return nil, err
	}
	rt.redis = d
	return d, nil
}

// Close releases the queue and the store.
func (rt *Runtime) Close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.Log.Warn("error closing redis client", "error", err)
		}
	}
	if rt.Tasks != nil {
		if err := rt.Tasks.Close(); err != nil {
			rt.Log.Warn("error closing task client", "error", err)
		}
	}
	if err := rt.DB.Close(); err != nil {
		rt.Log.Warn("error closing database", "error", err)
	}
}

// redeliverPending re-enqueues notifications whose dispatch was lost, for
// example because the process died between commit and enqueue.
func (rt *Runtime) redeliverPending(ctx context.Context) {
	pending, err := rt.notifications.ListUndelivered(ctx, redeliverBatch)
	if err != nil {
		rt.Log.Warn("failed to list undelivered notifications", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	ids := make([]uint, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
	}
	if err := tasks.NewNotificationDispatcher(rt.Tasks).Dispatch(ctx, ids); err != nil {
		rt.Log.Warn("failed to re-enqueue notifications", "error", err)
		return
	}
	rt.Log.Info("re-enqueued undelivered notifications", "count", len(ids))
}

// Run starts the task workers and the reconciliation scheduler and blocks
// until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting readquest worker", "version", version, "driver", cfg.Database.Driver)

	rt, err := NewRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.Tasks == nil {
		return fmt.Errorf("task queue is disabled (TASKS_ENABLED=false), nothing to run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rt.Tasks.Start(ctx)
	rt.redeliverPending(ctx)

	reconciler := scheduler.NewReconcileScheduler(cfg.Reconcile, rt.Tasks, log)
	if err := reconciler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconcile scheduler: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	log.Info("shutting down", "signal", sig.String(), "timeout", timeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	reconciler.Stop()
	rt.Tasks.Stop(shutdownCtx)
	cancel()

	log.Info("worker exiting")
	return nil
}
