package progression

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readquest/internal/entities"
)

func TestLedger_CreditAndDebit(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()

	err := env.engine.InTx(ctx, func(tx *Tx) error {
		entry, err := env.engine.Ledger.Credit(ctx, tx, child.ID, 50, entities.SourceReadingSession, "1")
		require.NoError(t, err)
		assert.Equal(t, int64(50), entry.Amount)
		assert.Equal(t, int64(50), entry.BalanceAfter)
		assert.Equal(t, entities.LedgerCredit, entry.Direction)

		entry, err = env.engine.Ledger.Debit(ctx, tx, child.ID, 20, entities.SourceAvatarPurchase, "p-1")
		require.NoError(t, err)
		assert.Equal(t, int64(-20), entry.Amount)
		assert.Equal(t, int64(30), entry.BalanceAfter)
		assert.Equal(t, entities.LedgerDebit, entry.Direction)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(30), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestLedger_DuplicateCredit(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()

	credit := func() error {
		return env.engine.InTx(ctx, func(tx *Tx) error {
			_, err := env.engine.Ledger.Credit(ctx, tx, child.ID, 25, entities.SourceQuizAttempt, "42")
			return err
		})
	}

	require.NoError(t, credit())
	err := credit()
	assert.ErrorIs(t, err, ErrDuplicateCredit)

	var count int64
	require.NoError(t, env.db.DB.Model(&entities.LedgerEntry{}).
		Where("source_kind = ? AND source_id = ?", entities.SourceQuizAttempt, "42").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(25), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestLedger_DuplicateCreditKeepsTransactionUsable(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 10)

	err := env.engine.InTx(ctx, func(tx *Tx) error {
		_, err := env.engine.Ledger.Credit(ctx, tx, child.ID, 5, entities.SourceReadingSession, "7")
		require.NoError(t, err)
		_, err = env.engine.Ledger.Credit(ctx, tx, child.ID, 5, entities.SourceReadingSession, "7")
		require.ErrorIs(t, err, ErrDuplicateCredit)

		_, err = env.engine.Ledger.Credit(ctx, tx, child.ID, 3, entities.SourceReadingSession, "8")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(18), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestLedger_InsufficientBalance(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 40)

	err := env.engine.InTx(ctx, func(tx *Tx) error {
		_, err := env.engine.Ledger.Debit(ctx, tx, child.ID, 41, entities.SourceRewardRedemption, "claim-1")
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(40), insufficient.Balance)
	assert.Equal(t, int64(41), insufficient.Required)

	assert.Equal(t, int64(40), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()

	tests := []struct {
		name string
		op   func(tx *Tx) error
	}{
		{"zero credit", func(tx *Tx) error {
			_, err := env.engine.Ledger.Credit(ctx, tx, child.ID, 0, entities.SourceReadingSession, "1")
			return err
		}},
		{"negative debit", func(tx *Tx) error {
			_, err := env.engine.Ledger.Debit(ctx, tx, child.ID, -5, entities.SourceAvatarPurchase, "1")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.engine.InTx(ctx, tt.op)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLedger_UnknownAccount(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	err := env.engine.InTx(ctx, func(tx *Tx) error {
		_, err := env.engine.Ledger.Credit(ctx, tx, 9999, 5, entities.SourceReadingSession, "1")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_ReconcileReportsDrift(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	env.grant(t, child.ID, 30)

	// Bypass the ledger to simulate a corrupted materialized balance.
	require.NoError(t, env.db.DB.Model(&entities.Account{}).
		Where("id = ?", child.ID).
		UpdateColumn("points_balance", 45).Error)

	drift, err := env.engine.Ledger.Reconcile(context.Background(), child.ID)
	require.NoError(t, err)
	require.NotNil(t, drift)
	assert.Equal(t, int64(45), drift.StoredBalance)
	assert.Equal(t, int64(30), drift.LedgerBalance)
	assert.Equal(t, int64(15), drift.Delta())
}
