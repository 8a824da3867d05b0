package entities

import "time"

type NotificationType string

const (
	NotificationAchievementUnlocked NotificationType = "achievement_unlocked"
	NotificationPointsEarned        NotificationType = "points_earned"
	NotificationRewardRedeemed      NotificationType = "reward_redeemed"
	NotificationRewardCompleted     NotificationType = "reward_completed"
	NotificationBookSubmitted       NotificationType = "book_submitted"
	NotificationBookModerated       NotificationType = "book_moderated"
)

// Notification is informational only; losing one never affects ledger state.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Ref         string           `gorm:"uniqueIndex;size:36;not null" json:"ref"`
	AccountID   uint             `gorm:"index;not null" json:"account_id"`
	Type        NotificationType `gorm:"size:50;not null" json:"type"`
	Title       string           `gorm:"size:200" json:"title"`
	Message     string           `gorm:"size:1000" json:"message"`
	Payload     string           `gorm:"type:text" json:"payload,omitempty"` // JSON
	DeliveredAt *time.Time       `gorm:"index" json:"delivered_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
