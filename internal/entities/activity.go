package entities

import "time"

// ReadingSession is append-only: rows are never updated after insert.
// (account_id, book_id, started_at) identifies a session, so a resubmitted
// session cannot be stored or credited twice.
type ReadingSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AccountID       uint      `gorm:"uniqueIndex:idx_reading_sessions_identity;not null" json:"account_id"`
	BookID          uint      `gorm:"uniqueIndex:idx_reading_sessions_identity;index;not null" json:"book_id"`
	StartedAt       time.Time `gorm:"uniqueIndex:idx_reading_sessions_identity;not null" json:"started_at"`
	EndedAt         time.Time `gorm:"not null" json:"ended_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Verified        bool      `gorm:"not null;default:false" json:"verified"`
	PointsEarned    int64     `gorm:"not null;default:0" json:"points_earned"`
	CreatedAt       time.Time `json:"created_at"`
}

func (ReadingSession) TableName() string {
	return "reading_sessions"
}

type QuizAttempt struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AccountID      uint       `gorm:"index:idx_quiz_attempts_account_book;not null" json:"account_id"`
	BookID         uint       `gorm:"index:idx_quiz_attempts_account_book;not null" json:"book_id"`
	Score          int        `gorm:"not null" json:"score"`
	TotalQuestions int        `gorm:"not null" json:"total_questions"`
	Passed         bool       `gorm:"not null;default:false" json:"passed"`
	PointsEarned   int64      `gorm:"not null;default:0" json:"points_earned"`
	AttemptedAt    time.Time  `gorm:"not null;index" json:"attempted_at"`
	CanRetryAt     *time.Time `json:"can_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
