package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readquest/internal/entities"
)

// QuizGovernor enforces the cooldown after a failed quiz attempt. Only the
// latest attempt for an (account, book) pair matters: a pass clears the
// restriction for whatever comes next.
type QuizGovernor struct {
	engine *Engine
}

// Passed applies the configured pass mark.
func (q *QuizGovernor) Passed(score, total int) bool {
	if total <= 0 {
		return false
	}
	return score*100 >= q.engine.rules.QuizPassPercent*total
}

// RetryAt returns when a new attempt is allowed after one made at attemptedAt.
// Passing attempts carry no restriction.
func (q *QuizGovernor) RetryAt(attemptedAt time.Time, passed bool) *time.Time {
	if passed || q.engine.rules.QuizRetryCooldown <= 0 {
		return nil
	}
	at := attemptedAt.Add(q.engine.rules.QuizRetryCooldown)
	return &at
}

// Check returns a RetryCooldownError while now is before the latest
// attempt's retry time.
func (q *QuizGovernor) Check(ctx context.Context, tx *Tx, accountID, bookID uint, now time.Time) error {
	latest, err := latestAttempt(tx.DB.WithContext(ctx), accountID, bookID)
	if err != nil || latest == nil {
		return err
	}
	if latest.Passed || latest.CanRetryAt == nil {
		return nil
	}
	if now.Before(*latest.CanRetryAt) {
		return &RetryCooldownError{BookID: bookID, CanRetryAt: *latest.CanRetryAt}
	}
	return nil
}

// NextAttemptAt reports when the account may next attempt the quiz for the
// book. A nil time means right away.
func (q *QuizGovernor) NextAttemptAt(ctx context.Context, accountID, bookID uint) (*time.Time, error) {
	latest, err := latestAttempt(q.engine.db.WithContext(ctx), accountID, bookID)
	if err != nil || latest == nil {
		return nil, err
	}
	if latest.Passed || latest.CanRetryAt == nil || !q.engine.clock.Now().Before(*latest.CanRetryAt) {
		return nil, nil
	}
	return latest.CanRetryAt, nil
}

func latestAttempt(db *gorm.DB, accountID, bookID uint) (*entities.QuizAttempt, error) {
	var attempt entities.QuizAttempt
	err := db.Where("account_id = ? AND book_id = ?", accountID, bookID).
		Order("attempted_at DESC, id DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest quiz attempt: %w", err)
	}
	return &attempt, nil
}
