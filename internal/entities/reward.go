package entities

import "time"

type UserRewardStatus string

const (
	UserRewardStatusRedeemed  UserRewardStatus = "REDEEMED"
	UserRewardStatusCompleted UserRewardStatus = "COMPLETED"
)

// Reward is defined by a parent and scoped to that parent's family.
type Reward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ParentID    uint      `gorm:"index;not null" json:"parent_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"size:1000" json:"description,omitempty"`
	PointsCost  int64     `gorm:"not null" json:"points_cost"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Reward) TableName() string {
	return "rewards"
}

// UserReward is one claim on a reward. At most one REDEEMED claim per
// (account, reward) may exist; see the idx_user_rewards_open index.
type UserReward struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	ClaimRef      string           `gorm:"uniqueIndex;size:36;not null" json:"claim_ref"`
	AccountID     uint             `gorm:"index;not null" json:"account_id"`
	RewardID      uint             `gorm:"index;not null" json:"reward_id"`
	Status        UserRewardStatus `gorm:"size:10;not null" json:"status"`
	PointsSpent   int64            `gorm:"not null" json:"points_spent"`
	RedeemedAt    time.Time        `gorm:"not null" json:"redeemed_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	CompletedByID *uint            `json:"completed_by_id,omitempty"`
	Reward        Reward           `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
}

func (UserReward) TableName() string {
	return "user_rewards"
}
