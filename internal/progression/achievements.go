package progression

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/mrlokans/readquest/internal/entities"
)

// Metrics is the snapshot an account is measured against for every
// achievement type.
type Metrics struct {
	PointsTotal   int64 // lifetime credits, spending does not lower it
	StreakLength  int64
	SessionCount  int64
	QuizPassCount int64 // distinct books with a passed quiz
	MinutesTotal  int64
}

func (m Metrics) value(t entities.AchievementType) (int64, bool) {
	switch t {
	case entities.AchievementTypePointsTotal:
		return m.PointsTotal, true
	case entities.AchievementTypeStreakLength:
		return m.StreakLength, true
	case entities.AchievementTypeSessionCount:
		return m.SessionCount, true
	case entities.AchievementTypeQuizPassCount:
		return m.QuizPassCount, true
	case entities.AchievementTypeMinutesTotal:
		return m.MinutesTotal, true
	default:
		return 0, false
	}
}

// AchievementEvaluator unlocks catalog achievements whose requirement the
// account now meets. It always runs inside the transaction that changed the
// metrics.
type AchievementEvaluator struct {
	engine *Engine
}

// Metrics reads the account's current progress inside tx.
func (a *AchievementEvaluator) Metrics(ctx context.Context, tx *Tx, accountID uint) (Metrics, error) {
	account, err := loadAccount(tx, accountID)
	if err != nil {
		return Metrics{}, err
	}
	m := Metrics{
		StreakLength: int64(account.StreakDays),
		MinutesTotal: int64(account.TotalMinutes),
	}
	if m.PointsTotal, err = a.engine.Ledger.LifetimeCredits(ctx, tx, accountID); err != nil {
		return Metrics{}, fmt.Errorf("lifetime credits: %w", err)
	}
	if err := tx.DB.Model(&entities.ReadingSession{}).
		Where("account_id = ? AND verified = ?", accountID, true).
		Count(&m.SessionCount).Error; err != nil {
		return Metrics{}, fmt.Errorf("count sessions: %w", err)
	}
	// Passing the same book's quiz again does not count as another quiz.
	if err := tx.DB.Model(&entities.QuizAttempt{}).
		Where("account_id = ? AND passed = ?", accountID, true).
		Distinct("book_id").
		Count(&m.QuizPassCount).Error; err != nil {
		return Metrics{}, fmt.Errorf("count passed quizzes: %w", err)
	}
	return m, nil
}

// Evaluate unlocks every satisfied achievement the account does not hold yet
// and returns the new unlocks. Bonus credits can satisfy further points
// achievements, so it repeats until a pass unlocks nothing.
func (a *AchievementEvaluator) Evaluate(ctx context.Context, tx *Tx, accountID uint) ([]entities.UserAchievement, error) {
	var unlocked []entities.UserAchievement
	for {
		metrics, err := a.Metrics(ctx, tx, accountID)
		if err != nil {
			return nil, err
		}

		var pending []entities.Achievement
		err = tx.DB.
			Where("id NOT IN (?)", tx.DB.Model(&entities.UserAchievement{}).Select("achievement_id").Where("account_id = ?", accountID)).
			Order("id").
			Find(&pending).Error
		if err != nil {
			return nil, fmt.Errorf("load achievements: %w", err)
		}

		progressed := false
		for _, achievement := range pending {
			current, known := metrics.value(achievement.Type)
			if !known {
				a.engine.log.Warn("unknown achievement type", "achievement_id", achievement.ID, "type", achievement.Type)
				continue
			}
			if current < achievement.Requirement {
				continue
			}
			ua, err := a.Unlock(ctx, tx, accountID, achievement)
			if err != nil {
				return nil, err
			}
			if ua != nil {
				unlocked = append(unlocked, *ua)
				progressed = true
			}
		}
		if !progressed {
			return unlocked, nil
		}
	}
}

// Unlock records the achievement for the account and credits its bonus.
// It returns nil without error when the account already holds it.
func (a *AchievementEvaluator) Unlock(ctx context.Context, tx *Tx, accountID uint, achievement entities.Achievement) (*entities.UserAchievement, error) {
	ua := &entities.UserAchievement{
		AccountID:     accountID,
		AchievementID: achievement.ID,
		EarnedAt:      a.engine.clock.Now(),
	}
	res := tx.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(ua)
	if res.Error != nil {
		return nil, fmt.Errorf("unlock achievement %d: %w", achievement.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	ua.Achievement = achievement

	if achievement.BonusPoints > 0 {
		sourceID := fmt.Sprintf("%d:%d", accountID, achievement.ID)
		if _, err := a.engine.Ledger.Credit(ctx, tx, accountID, achievement.BonusPoints, entities.SourceAchievement, sourceID); err != nil {
			return nil, fmt.Errorf("achievement bonus: %w", err)
		}
	}

	a.engine.notifier.emit(tx, accountID, entities.NotificationAchievementUnlocked,
		"Achievement unlocked!",
		fmt.Sprintf("You earned %q", achievement.Name),
		map[string]any{"achievement_id": achievement.ID, "bonus_points": achievement.BonusPoints},
	)
	a.engine.log.Info("achievement unlocked", "account_id", accountID, "achievement", achievement.Name)
	return ua, nil
}

// Earned lists the account's achievements, oldest first.
func (a *AchievementEvaluator) Earned(ctx context.Context, accountID uint) ([]entities.UserAchievement, error) {
	var out []entities.UserAchievement
	err := a.engine.db.WithContext(ctx).
		Preload("Achievement").
		Where("account_id = ?", accountID).
		Order("earned_at, id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return out, nil
}
