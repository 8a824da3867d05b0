package entities

import "time"

type AvatarItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ItemType   string    `gorm:"uniqueIndex:idx_avatar_items_identity;size:50;not null" json:"item_type"` // equip slot
	Value      string    `gorm:"uniqueIndex:idx_avatar_items_identity;size:100;not null" json:"value"`
	Style      string    `gorm:"uniqueIndex:idx_avatar_items_identity;size:50;not null" json:"style"`
	PointsCost int64     `gorm:"not null;default:0" json:"points_cost"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AvatarItem) TableName() string {
	return "avatar_items"
}

// UserAvatarItem copies the item type into Slot so the one-equipped-per-slot
// rule can be backed by a partial unique index.
type UserAvatarItem struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PurchaseRef  string     `gorm:"uniqueIndex;size:36;not null" json:"purchase_ref"`
	AccountID    uint       `gorm:"uniqueIndex:idx_user_avatar_items_pair;not null" json:"account_id"`
	AvatarItemID uint       `gorm:"uniqueIndex:idx_user_avatar_items_pair;not null" json:"avatar_item_id"`
	Slot         string     `gorm:"size:50;not null;index" json:"slot"`
	Equipped     bool       `gorm:"not null;default:false" json:"equipped"`
	PurchasedAt  time.Time  `gorm:"not null" json:"purchased_at"`
	AvatarItem   AvatarItem `gorm:"foreignKey:AvatarItemID" json:"avatar_item,omitempty"`
}

func (UserAvatarItem) TableName() string {
	return "user_avatar_items"
}
