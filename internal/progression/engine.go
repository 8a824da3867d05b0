// Package progression turns verified reading and quiz activity into points,
// streaks and achievements, and runs the state machines that spend points or
// need a guardian's approval: reward redemption, avatar purchases and book
// moderation.
//
// Every public operation runs as one store transaction. Idempotency is backed
// by unique indexes (ledger source, achievement pair, owned avatar item, open
// reward claim), never by in-memory bookkeeping, so retrying a whole
// operation after a failure is always safe.
//
//	engine := progression.New(db.DB, cfg.Progression, progression.WithLogger(log))
//	result, err := engine.Recorder.RecordSession(ctx, progression.SessionInput{...})
//	claim, err := engine.Rewards.Redeem(ctx, childID, rewardID)
package progression

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/logger"
)

// Engine wires the progression components around one store.
type Engine struct {
	Accounts     *Accounts
	Ledger       *Ledger
	Achievements *AchievementEvaluator
	Recorder     *Recorder
	Quiz         *QuizGovernor
	Rewards      *Rewards
	Shop         *Shop
	Moderation   *Moderation

	db       *gorm.DB
	rules    config.Progression
	clock    Clock
	log      *logger.Logger
	runner   *txRunner
	notifier *notifier
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDispatcher sets where committed notification ids are sent for delivery.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.runner.dispatcher = d }
}

func New(db *gorm.DB, rules config.Progression, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		rules:  rules,
		clock:  systemClock{},
		log:    logger.NewNop(),
		runner: &txRunner{db: db, dispatcher: nopDispatcher{}},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "progression")
	e.runner.log = e.log
	e.notifier = &notifier{clock: e.clock, log: e.log, disabled: rules.NotificationsDisabled}

	e.Ledger = newLedger(db)
	e.Accounts = &Accounts{engine: e}
	e.Achievements = &AchievementEvaluator{engine: e}
	e.Quiz = &QuizGovernor{engine: e}
	e.Recorder = &Recorder{engine: e}
	e.Rewards = &Rewards{engine: e}
	e.Shop = &Shop{engine: e}
	e.Moderation = &Moderation{engine: e}
	return e
}

// InTx runs fn as one unit of work so callers can compose several
// operations, for example a manual credit followed by achievement evaluation.
func (e *Engine) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	return e.runner.InTx(ctx, fn)
}
