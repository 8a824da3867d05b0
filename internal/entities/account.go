package entities

import "time"

type AccountRole string

const (
	AccountRoleParent AccountRole = "PARENT"
	AccountRoleChild  AccountRole = "CHILD"
)

// Account is either a guardian (PARENT, no parent) or a dependent (CHILD,
// ParentID set). ParentID is a plain id lookup; accounts never embed each other.
//
// PointsBalance is a materialized value owned by the points ledger. It is only
// written in the same transaction that appends a LedgerEntry.
type Account struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Username      string      `gorm:"uniqueIndex;size:100;not null" json:"username"`
	DisplayName   string      `gorm:"size:200" json:"display_name"`
	Role          AccountRole `gorm:"size:10;not null;index" json:"role"`
	ParentID      *uint       `gorm:"index" json:"parent_id,omitempty"`
	Timezone      string      `gorm:"size:64" json:"timezone,omitempty"` // IANA name, account-local calendar
	PointsBalance int64       `gorm:"not null;default:0;check:points_balance >= 0" json:"points_balance"`
	TotalMinutes  int         `gorm:"not null;default:0" json:"total_minutes"`
	StreakDays    int         `gorm:"not null;default:0" json:"streak_days"`
	LastReadDate  *time.Time  `json:"last_read_date,omitempty"` // midnight UTC of the local calendar day
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) IsGuardian() bool {
	return a.Role == AccountRoleParent
}

// IsGuardianOf reports whether a is the PARENT account directly responsible for child.
func (a *Account) IsGuardianOf(child *Account) bool {
	if a == nil || child == nil || !a.IsGuardian() {
		return false
	}
	return child.ParentID != nil && *child.ParentID == a.ID
}

// FamilyID returns the id of the guardian heading this account's family.
func (a *Account) FamilyID() uint {
	if a.ParentID != nil {
		return *a.ParentID
	}
	return a.ID
}
