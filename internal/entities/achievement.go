package entities

import "time"

type AchievementType string

const (
	AchievementTypePointsTotal   AchievementType = "points_total"
	AchievementTypeStreakLength  AchievementType = "streak_length"
	AchievementTypeSessionCount  AchievementType = "session_count"
	AchievementTypeQuizPassCount AchievementType = "quiz_pass_count"
	AchievementTypeMinutesTotal  AchievementType = "minutes_total"
)

// Achievement is a static catalog entry.
type Achievement struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	Type        AchievementType `gorm:"size:32;not null;index" json:"type"`
	Requirement int64           `gorm:"not null" json:"requirement"`
	BonusPoints int64           `gorm:"not null;default:0" json:"bonus_points"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}

type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	AccountID     uint        `gorm:"uniqueIndex:idx_user_achievements_pair;not null" json:"account_id"`
	AchievementID uint        `gorm:"uniqueIndex:idx_user_achievements_pair;not null" json:"achievement_id"`
	EarnedAt      time.Time   `gorm:"not null" json:"earned_at"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
