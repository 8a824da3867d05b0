// Package ledger provides read-side queries over the points ledger.
//
// Writes never go through this package: credits and debits are applied by
// progression.Ledger inside the caller's transaction.
//
// # Usage
//
//	repo := ledger.NewRepository(db)
//	drifts, err := repo.FindDrift(ctx)
package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/readquest/internal/entities"
)

// Drift describes an account whose materialized balance disagrees with the
// sum of its ledger entries.
type Drift struct {
	AccountID     uint  `json:"account_id"`
	StoredBalance int64 `json:"stored_balance"`
	LedgerBalance int64 `json:"ledger_balance"`
}

// Delta returns stored minus ledger balance.
func (d Drift) Delta() int64 {
	return d.StoredBalance - d.LedgerBalance
}

// Repository handles ledger read operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// SumForAccount returns the signed sum of every entry for the account.
func (r *Repository) SumForAccount(ctx context.Context, accountID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&entities.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// LifetimeCredits returns the total of all credits ever applied to the account.
func (r *Repository) LifetimeCredits(ctx context.Context, accountID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&entities.LedgerEntry{}).
		Where("account_id = ? AND direction = ?", accountID, entities.LedgerCredit).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// EntriesForAccount returns the account's entries, newest first.
func (r *Repository) EntriesForAccount(ctx context.Context, accountID uint, limit, offset int) ([]entities.LedgerEntry, error) {
	var entries []entities.LedgerEntry
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// GetBySource looks up the entry recorded for a source record.
func (r *Repository) GetBySource(ctx context.Context, kind entities.LedgerSourceKind, sourceID string) (*entities.LedgerEntry, error) {
	var entry entities.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("source_kind = ? AND source_id = ?", kind, sourceID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DriftForAccount compares one account's stored balance with its ledger sum.
// It returns nil when the two agree.
func (r *Repository) DriftForAccount(ctx context.Context, accountID uint) (*Drift, error) {
	var account entities.Account
	if err := r.db.WithContext(ctx).Select("id", "points_balance").First(&account, accountID).Error; err != nil {
		return nil, err
	}
	sum, err := r.SumForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if sum == account.PointsBalance {
		return nil, nil
	}
	return &Drift{AccountID: accountID, StoredBalance: account.PointsBalance, LedgerBalance: sum}, nil
}

// FindDrift returns every account whose stored balance differs from its ledger sum.
func (r *Repository) FindDrift(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	err := r.db.WithContext(ctx).
		Table("accounts AS a").
		Select("a.id AS account_id, a.points_balance AS stored_balance, COALESCE(SUM(e.amount), 0) AS ledger_balance").
		Joins("LEFT JOIN ledger_entries e ON e.account_id = a.id").
		Group("a.id, a.points_balance").
		Having("a.points_balance <> COALESCE(SUM(e.amount), 0)").
		Order("a.id").
		Scan(&drifts).Error
	return drifts, err
}
