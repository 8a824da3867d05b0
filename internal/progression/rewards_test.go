package progression

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readquest/internal/entities"
)

func TestRewards_RedeemAndComplete(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 100)

	reward, err := env.engine.Rewards.CreateReward(ctx, parent.ID, "Movie night", "Pick the film", 60)
	require.NoError(t, err)

	claim, err := env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRewardStatusRedeemed, claim.Status)
	assert.Equal(t, int64(60), claim.PointsSpent)
	assert.NotEmpty(t, claim.ClaimRef)
	assert.True(t, env.clock.Now().Equal(claim.RedeemedAt))
	assert.Equal(t, int64(40), env.balance(t, child.ID))

	completed, err := env.engine.Rewards.Complete(ctx, claim.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRewardStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.CompletedByID)
	assert.Equal(t, parent.ID, *completed.CompletedByID)

	env.clock.Advance(time.Hour)
	again, err := env.engine.Rewards.Complete(ctx, claim.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRewardStatusCompleted, again.Status)
	assert.True(t, completed.CompletedAt.Equal(*again.CompletedAt), "second complete changes nothing")

	assert.Equal(t, int64(40), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestRewards_RedeemInsufficientBalance(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 30)

	reward, err := env.engine.Rewards.CreateReward(ctx, parent.ID, "Bike ride", "", 60)
	require.NoError(t, err)

	_, err = env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(30), env.balance(t, child.ID))

	claims, err := env.engine.Rewards.Claims(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, claims)
	env.requireLedgerConsistent(t, child.ID)
}

func TestRewards_AlreadyRedeemed(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 100)

	reward, err := env.engine.Rewards.CreateReward(ctx, parent.ID, "Sleepover", "", 30)
	require.NoError(t, err)

	first, err := env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	require.NoError(t, err)

	_, err = env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	require.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.Equal(t, int64(70), env.balance(t, child.ID), "refused redemption is not charged")

	// Once completed the reward can be claimed again as a new row.
	_, err = env.engine.Rewards.Complete(ctx, first.ID, parent.ID)
	require.NoError(t, err)
	second, err := env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(40), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestRewards_ConcurrentRedemption(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 100)

	reward, err := env.engine.Rewards.CreateReward(ctx, parent.ID, "Theme park", "", 60)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(40), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestRewards_CompleteRequiresGuardian(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	otherParent, sibling := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 50)

	reward, err := env.engine.Rewards.CreateReward(ctx, parent.ID, "Pizza", "", 50)
	require.NoError(t, err)
	claim, err := env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	require.NoError(t, err)

	for _, actor := range []uint{child.ID, otherParent.ID, sibling.ID} {
		_, err := env.engine.Rewards.Complete(ctx, claim.ID, actor)
		assert.ErrorIs(t, err, ErrUnauthorizedTransition)
	}

	claims, err := env.engine.Rewards.Claims(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, entities.UserRewardStatusRedeemed, claims[0].Status)
}

func TestRewards_ScopedToFamily(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	otherParent, _ := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 100)

	reward, err := env.engine.Rewards.CreateReward(ctx, otherParent.ID, "Not yours", "", 10)
	require.NoError(t, err)

	_, err = env.engine.Rewards.Redeem(ctx, child.ID, reward.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	available, err := env.engine.Rewards.Available(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestRewards_CreateRewardValidation(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()

	_, err := env.engine.Rewards.CreateReward(ctx, child.ID, "Candy", "", 5)
	assert.ErrorIs(t, err, ErrUnauthorizedTransition)

	_, err = env.engine.Rewards.CreateReward(ctx, parent.ID, "  ", "", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.engine.Rewards.CreateReward(ctx, parent.ID, "Debt", "", -5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.engine.Rewards.Redeem(ctx, child.ID, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}
