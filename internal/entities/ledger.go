package entities

import "time"

type LedgerDirection string

const (
	LedgerCredit LedgerDirection = "credit"
	LedgerDebit  LedgerDirection = "debit"
)

type LedgerSourceKind string

const (
	SourceReadingSession   LedgerSourceKind = "reading_session"
	SourceQuizAttempt      LedgerSourceKind = "quiz_attempt"
	SourceAchievement      LedgerSourceKind = "achievement"
	SourceRewardRedemption LedgerSourceKind = "reward_redemption"
	SourceAvatarPurchase   LedgerSourceKind = "avatar_purchase"
)

// LedgerEntry is an append-only points movement. Amount is signed: credits
// are positive and debits negative. (source_kind, source_id) is unique.
type LedgerEntry struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	AccountID    uint             `gorm:"index;not null" json:"account_id"`
	Direction    LedgerDirection  `gorm:"size:10;not null" json:"direction"`
	Amount       int64            `gorm:"not null" json:"amount"`
	SourceKind   LedgerSourceKind `gorm:"uniqueIndex:idx_ledger_entries_source;size:32;not null" json:"source_kind"`
	SourceID     string           `gorm:"uniqueIndex:idx_ledger_entries_source;size:64;not null" json:"source_id"`
	BalanceAfter int64            `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time        `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
