// Package notifications provides database operations for notification records.
//
// # Usage
//
//	repo := notifications.NewRepository(db)
//	n, err := repo.GetByID(ctx, id)
//	err = repo.MarkDelivered(ctx, id, time.Now())
package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readquest/internal/entities"
)

// Repository handles all notification database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a notification.
func (r *Repository) Create(ctx context.Context, n *entities.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetByID retrieves a notification by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Notification, error) {
	var n entities.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkDelivered stamps the delivery time. Already delivered rows are left as they are.
func (r *Repository) MarkDelivered(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", at)
	return res.RowsAffected > 0, res.Error
}

// ListUndelivered returns notifications that still wait for delivery, oldest first.
func (r *Repository) ListUndelivered(ctx context.Context, limit int) ([]entities.Notification, error) {
	var out []entities.Notification
	query := r.db.WithContext(ctx).Where("delivered_at IS NULL").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

// ListForAccount returns an account's notifications, newest first.
func (r *Repository) ListForAccount(ctx context.Context, accountID uint, limit int) ([]entities.Notification, error) {
	var out []entities.Notification
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

// DeleteDeliveredBefore removes notifications delivered before the cutoff.
func (r *Repository) DeleteDeliveredBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("delivered_at IS NOT NULL AND delivered_at < ?", before).
		Delete(&entities.Notification{})
	return res.RowsAffected, res.Error
}
