package progression

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm/clause"

	"github.com/mrlokans/readquest/internal/entities"
)

// clockSkew is how far in the future an activity timestamp may lie.
const clockSkew = time.Minute

type SessionInput struct {
	AccountID uint
	BookID    uint
	StartedAt time.Time
	EndedAt   time.Time
	Verified  bool
}

type QuizInput struct {
	AccountID      uint
	BookID         uint
	Score          int
	TotalQuestions int
}

// ActivityResult is what one recorded activity changed.
type ActivityResult struct {
	Session      *entities.ReadingSession
	Attempt      *entities.QuizAttempt
	PointsEarned int64
	StreakDays   int
	Balance      int64
	Unlocked     []entities.UserAchievement
}

// Recorder is the only entry point that mints points. Each call persists the
// activity, credits its points, advances the streak and evaluates
// achievements in one transaction.
type Recorder struct {
	engine *Engine
}

// RecordSession stores a finished reading session. Only verified sessions
// earn points and count towards minutes and streaks.
func (r *Recorder) RecordSession(ctx context.Context, in SessionInput) (*ActivityResult, error) {
	e := r.engine
	if !in.EndedAt.After(in.StartedAt) {
		return nil, fmt.Errorf("session ends before it starts: %w", ErrInvalidActivity)
	}
	if in.EndedAt.After(e.clock.Now().Add(clockSkew)) {
		return nil, fmt.Errorf("session ends in the future: %w", ErrInvalidActivity)
	}

	minutes := int(in.EndedAt.Sub(in.StartedAt) / time.Minute)
	if max := e.rules.MaxSessionMinutes; max > 0 && minutes > max {
		minutes = max
	}

	result := &ActivityResult{}
	err := e.InTx(ctx, func(tx *Tx) error {
		account, err := lockAccount(tx, in.AccountID)
		if err != nil {
			return err
		}
		if _, err := readableBook(tx, account, in.BookID); err != nil {
			return err
		}

		session := &entities.ReadingSession{
			AccountID:       account.ID,
			BookID:          in.BookID,
			StartedAt:       in.StartedAt.UTC(),
			EndedAt:         in.EndedAt.UTC(),
			DurationMinutes: minutes,
			Verified:        in.Verified,
		}
		if err := checkOverlap(tx, session); err != nil {
			return err
		}
		if in.Verified {
			session.PointsEarned = int64(minutes) * e.rules.PointsPerMinute
		}
		res := tx.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(session)
		if res.Error != nil {
			return fmt.Errorf("create reading session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("reading session started %s: %w", session.StartedAt.Format(time.RFC3339), ErrDuplicateCredit)
		}
		result.Session = session
		result.StreakDays = account.StreakDays

		if !in.Verified {
			result.Balance = account.PointsBalance
			return nil
		}

		streak := NextStreak(StreakState{Days: account.StreakDays, LastReadDate: account.LastReadDate},
			in.EndedAt, e.location(account.Timezone))
		err = tx.DB.Model(&entities.Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"total_minutes":  account.TotalMinutes + minutes,
			"streak_days":    streak.Days,
			"last_read_date": streak.LastReadDate,
		}).Error
		if err != nil {
			return fmt.Errorf("update reading progress: %w", err)
		}
		result.StreakDays = streak.Days

		if session.PointsEarned > 0 {
			if _, err := e.Ledger.Credit(ctx, tx, account.ID, session.PointsEarned, entities.SourceReadingSession, strconv.FormatUint(uint64(session.ID), 10)); err != nil {
				return err
			}
			result.PointsEarned = session.PointsEarned
			e.notifier.emit(tx, account.ID, entities.NotificationPointsEarned,
				"Points earned",
				fmt.Sprintf("You read for %d minutes and earned %d points", minutes, session.PointsEarned),
				map[string]any{"reading_session_id": session.ID, "points": session.PointsEarned},
			)
		}

		return r.finish(ctx, tx, account.ID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkOverlap rejects a session whose time range intersects one already
// recorded for the account. Resubmitting the same session is a duplicate;
// any other overlap would count the same reading time twice.
func checkOverlap(tx *Tx, session *entities.ReadingSession) error {
	var existing []entities.ReadingSession
	err := tx.DB.
		Where("account_id = ? AND started_at < ? AND ended_at > ?", session.AccountID, session.EndedAt, session.StartedAt).
		Order("id").
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return fmt.Errorf("check overlapping sessions: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}
	prev := existing[0]
	if prev.BookID == session.BookID && prev.StartedAt.Equal(session.StartedAt) {
		return fmt.Errorf("reading session %d already recorded: %w", prev.ID, ErrDuplicateCredit)
	}
	return fmt.Errorf("session overlaps reading session %d: %w", prev.ID, ErrInvalidActivity)
}

// RecordQuizAttempt stores a quiz result. A failed attempt starts the retry
// cooldown. Points are paid for the first pass on a book only.
func (r *Recorder) RecordQuizAttempt(ctx context.Context, in QuizInput) (*ActivityResult, error) {
	e := r.engine
	if in.TotalQuestions <= 0 || in.Score < 0 || in.Score > in.TotalQuestions {
		return nil, fmt.Errorf("score %d of %d: %w", in.Score, in.TotalQuestions, ErrInvalidActivity)
	}

	result := &ActivityResult{}
	err := e.InTx(ctx, func(tx *Tx) error {
		account, err := lockAccount(tx, in.AccountID)
		if err != nil {
			return err
		}
		if _, err := readableBook(tx, account, in.BookID); err != nil {
			return err
		}

		now := e.clock.Now()
		if err := e.Quiz.Check(ctx, tx, account.ID, in.BookID, now); err != nil {
			return err
		}

		passed := e.Quiz.Passed(in.Score, in.TotalQuestions)
		attempt := &entities.QuizAttempt{
			AccountID:      account.ID,
			BookID:         in.BookID,
			Score:          in.Score,
			TotalQuestions: in.TotalQuestions,
			Passed:         passed,
			AttemptedAt:    now,
			CanRetryAt:     e.Quiz.RetryAt(now, passed),
		}
		if passed {
			var earlierPasses int64
			err := tx.DB.Model(&entities.QuizAttempt{}).
				Where("account_id = ? AND book_id = ? AND passed = ?", account.ID, in.BookID, true).
				Count(&earlierPasses).Error
			if err != nil {
				return fmt.Errorf("count earlier passes: %w", err)
			}
			if earlierPasses == 0 {
				attempt.PointsEarned = int64(in.Score) * e.rules.QuizPointsPerCorrect
			}
		}
		if err := tx.DB.Create(attempt).Error; err != nil {
			return fmt.Errorf("create quiz attempt: %w", err)
		}
		result.Attempt = attempt
		result.StreakDays = account.StreakDays

		if attempt.PointsEarned > 0 {
			if _, err := e.Ledger.Credit(ctx, tx, account.ID, attempt.PointsEarned, entities.SourceQuizAttempt, strconv.FormatUint(uint64(attempt.ID), 10)); err != nil {
				return err
			}
			result.PointsEarned = attempt.PointsEarned
			e.notifier.emit(tx, account.ID, entities.NotificationPointsEarned,
				"Quiz passed",
				fmt.Sprintf("You scored %d/%d and earned %d points", in.Score, in.TotalQuestions, attempt.PointsEarned),
				map[string]any{"quiz_attempt_id": attempt.ID, "points": attempt.PointsEarned},
			)
		}

		return r.finish(ctx, tx, account.ID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Recorder) finish(ctx context.Context, tx *Tx, accountID uint, result *ActivityResult) error {
	unlocked, err := r.engine.Achievements.Evaluate(ctx, tx, accountID)
	if err != nil {
		return err
	}
	result.Unlocked = unlocked

	balance, err := r.engine.Ledger.Balance(ctx, tx, accountID)
	if err != nil {
		return err
	}
	result.Balance = balance
	return nil
}
