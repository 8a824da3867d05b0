package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/logger"
	"github.com/mrlokans/readquest/internal/tasks"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a standard five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// NextRunTime calculates when a schedule fires next after from.
func NextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}

// ReconcileScheduler periodically enqueues ledger reconciliation and the
// purge of old delivered notifications. The work itself runs on the task
// queue, so a slow reconciliation never blocks the cron loop.
type ReconcileScheduler struct {
	cfg   config.Reconcile
	queue tasks.Enqueuer
	log   *logger.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReconcileScheduler creates a new scheduler instance
func NewReconcileScheduler(cfg config.Reconcile, queue tasks.Enqueuer, log *logger.Logger) *ReconcileScheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReconcileScheduler{
		cfg:   cfg,
		queue: queue,
		log:   log.With("component", "reconcile_scheduler"),
		cron:  cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins the scheduler if reconciliation is enabled
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		s.log.Info("reconcile scheduler disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.enqueue("schedule")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconcile job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.cfg.Schedule, time.Now())
	s.log.Info("reconcile scheduler started", "schedule", s.cfg.Schedule, "next_run", nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReconcileScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	s.log.Info("reconcile scheduler stopped")
}

// RunNow enqueues a reconciliation immediately
func (s *ReconcileScheduler) RunNow() error {
	return s.enqueue("manual")
}

// IsRunning returns whether the scheduler is active
func (s *ReconcileScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next reconciliation will occur
func (s *ReconcileScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *ReconcileScheduler) enqueue(trigger string) error {
	batch := []backlite.Task{tasks.ReconcileLedgerTask{TriggeredBy: trigger}}
	if s.cfg.NotificationRetentionDays > 0 {
		batch = append(batch, tasks.CleanupNotificationsTask{RetentionDays: s.cfg.NotificationRetentionDays})
	}
	ids, err := s.queue.Add(batch...).Save()
	if err != nil {
		s.log.Error("failed to enqueue reconciliation", "trigger", trigger, "error", err)
		return fmt.Errorf("enqueue reconciliation: %w", err)
	}
	s.log.Info("reconciliation enqueued", "trigger", trigger, "task_ids", ids)
	return nil
}
