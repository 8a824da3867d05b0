package progression

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/readquest/internal/database/ledger"
	"github.com/mrlokans/readquest/internal/entities"
)

// Ledger is the only code path that changes an account's points balance.
// Each movement is an entry keyed by (source kind, source id); the unique
// index on that pair is what makes retried credits harmless.
type Ledger struct {
	repo *ledger.Repository
}

func newLedger(db *gorm.DB) *Ledger {
	return &Ledger{repo: ledger.NewRepository(db)}
}

// Credit adds amount to the account, attributed to one source record.
// A second credit for the same source returns ErrDuplicateCredit and changes nothing.
func (l *Ledger) Credit(ctx context.Context, tx *Tx, accountID uint, amount int64, kind entities.LedgerSourceKind, sourceID string) (*entities.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount %d: %w", amount, ErrInvalidInput)
	}
	var entry *entities.LedgerEntry
	// Savepoint: a refused credit leaves the caller's transaction usable.
	err := tx.DB.WithContext(ctx).Transaction(func(stx *gorm.DB) error {
		res := stx.Model(&entities.Account{}).
			Where("id = ?", accountID).
			UpdateColumn("points_balance", gorm.Expr("points_balance + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("apply credit: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("account", accountID)
		}

		var err error
		entry, err = appendEntry(stx, accountID, entities.LedgerCredit, amount, kind, sourceID)
		if errors.Is(err, errDuplicateSource) {
			return fmt.Errorf("%s %s: %w", kind, sourceID, ErrDuplicateCredit)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Debit removes amount from the account. The balance check and the decrement
// are a single conditional UPDATE, so two concurrent debits can never both
// pass against the same balance.
func (l *Ledger) Debit(ctx context.Context, tx *Tx, accountID uint, amount int64, kind entities.LedgerSourceKind, sourceID string) (*entities.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount %d: %w", amount, ErrInvalidInput)
	}
	var entry *entities.LedgerEntry
	err := tx.DB.WithContext(ctx).Transaction(func(stx *gorm.DB) error {
		res := stx.Model(&entities.Account{}).
			Where("id = ? AND points_balance >= ?", accountID, amount).
			UpdateColumn("points_balance", gorm.Expr("points_balance - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("apply debit: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var account entities.Account
			if err := stx.Select("id", "points_balance").First(&account, accountID).Error; err != nil {
				return storeError("load account", "account", accountID, err)
			}
			return &InsufficientBalanceError{AccountID: accountID, Balance: account.PointsBalance, Required: amount}
		}

		var err error
		entry, err = appendEntry(stx, accountID, entities.LedgerDebit, -amount, kind, sourceID)
		if errors.Is(err, errDuplicateSource) {
			return fmt.Errorf("%s %s: %w", kind, sourceID, ErrDuplicateDebit)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

var errDuplicateSource = errors.New("ledger source already recorded")

func appendEntry(tx *gorm.DB, accountID uint, direction entities.LedgerDirection, amount int64, kind entities.LedgerSourceKind, sourceID string) (*entities.LedgerEntry, error) {
	var balance int64
	if err := tx.Model(&entities.Account{}).Select("points_balance").Where("id = ?", accountID).Scan(&balance).Error; err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	entry := &entities.LedgerEntry{
		AccountID:    accountID,
		Direction:    direction,
		Amount:       amount,
		SourceKind:   kind,
		SourceID:     sourceID,
		BalanceAfter: balance,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		return nil, fmt.Errorf("append ledger entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errDuplicateSource
	}
	return entry, nil
}

// Balance returns the account's current points balance.
func (l *Ledger) Balance(ctx context.Context, tx *Tx, accountID uint) (int64, error) {
	var account entities.Account
	if err := tx.DB.WithContext(ctx).Select("id", "points_balance").First(&account, accountID).Error; err != nil {
		return 0, storeError("load balance", "account", accountID, err)
	}
	return account.PointsBalance, nil
}

// LifetimeCredits returns everything ever credited to the account, ignoring spending.
func (l *Ledger) LifetimeCredits(ctx context.Context, tx *Tx, accountID uint) (int64, error) {
	return l.repo.WithTx(tx.DB).LifetimeCredits(ctx, accountID)
}

// Reconcile compares the stored balance with the sum of the account's entries.
// A nil drift means they agree.
func (l *Ledger) Reconcile(ctx context.Context, accountID uint) (*ledger.Drift, error) {
	drift, err := l.repo.DriftForAccount(ctx, accountID)
	if err != nil {
		return nil, storeError("reconcile", "account", accountID, err)
	}
	return drift, nil
}
