package progression

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/readquest/internal/entities"
	"github.com/mrlokans/readquest/internal/logger"
)

// Dispatcher hands committed notifications to the delivery pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, notificationIDs []uint) error
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, []uint) error { return nil }

// Tx is one atomic unit of work. Every ledger, achievement and state machine
// write made through the same Tx commits or rolls back together.
type Tx struct {
	DB *gorm.DB

	notifications []uint
}

type txRunner struct {
	db         *gorm.DB
	dispatcher Dispatcher
	log        *logger.Logger
}

// InTx runs fn inside a store transaction. Notifications created by fn are
// dispatched only after commit; dispatch failures are logged, never returned.
func (r *txRunner) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{}
	err := r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx.DB = gtx
		return fn(tx)
	})
	if err != nil {
		return err
	}
	if len(tx.notifications) > 0 {
		if derr := r.dispatcher.Dispatch(ctx, tx.notifications); derr != nil {
			r.log.Warn("notification dispatch failed", "notification_ids", tx.notifications, "error", derr)
		}
	}
	return nil
}

// lockAccount touches the account row so concurrent writers for the same
// account queue behind this transaction. It doubles as an existence check.
func lockAccount(tx *Tx, accountID uint) (*entities.Account, error) {
	res := tx.DB.Model(&entities.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("updated_at", gorm.Expr("updated_at"))
	if res.Error != nil {
		return nil, fmt.Errorf("lock account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("account", accountID)
	}
	return loadAccount(tx, accountID)
}

func loadAccount(tx *Tx, accountID uint) (*entities.Account, error) {
	var account entities.Account
	if err := tx.DB.First(&account, accountID).Error; err != nil {
		return nil, storeError("load account", "account", accountID, err)
	}
	return &account, nil
}
