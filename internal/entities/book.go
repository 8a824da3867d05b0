package entities

import "time"

type BookStatus string

const (
	BookStatusPending  BookStatus = "PENDING"
	BookStatusApproved BookStatus = "APPROVED"
	BookStatusRejected BookStatus = "REJECTED"
)

type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	OwnerID       uint       `gorm:"index;not null" json:"owner_id"`
	Title         string     `gorm:"index;size:512;not null" json:"title"`
	Author        string     `gorm:"index;size:256" json:"author"`
	Status        BookStatus `gorm:"size:10;not null;default:'PENDING';index" json:"status"`
	ModeratedByID *uint      `json:"moderated_by_id,omitempty"`
	ModeratedAt   *time.Time `json:"moderated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) IsApproved() bool {
	return b.Status == BookStatusApproved
}
