package progression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/readquest/internal/entities"
)

func (env *testEnv) avatarItem(t *testing.T, itemType, value string, cost int64) entities.AvatarItem {
	t.Helper()
	item := entities.AvatarItem{ItemType: itemType, Value: value, Style: "test", PointsCost: cost}
	require.NoError(t, env.db.DB.Create(&item).Error)
	return item
}

func TestShop_Purchase(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 100)
	hat := env.avatarItem(t, "hat", "pirate", 70)

	owned, err := env.engine.Shop.Purchase(ctx, child.ID, hat.ID)
	require.NoError(t, err)
	assert.False(t, owned.Equipped)
	assert.Equal(t, "hat", owned.Slot)
	assert.NotEmpty(t, owned.PurchaseRef)
	assert.Equal(t, int64(30), env.balance(t, child.ID))

	_, err = env.engine.Shop.Purchase(ctx, child.ID, hat.ID)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.Equal(t, int64(30), env.balance(t, child.ID))
	env.requireLedgerConsistent(t, child.ID)
}

func TestShop_PurchaseInsufficientBalance(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	env.grant(t, child.ID, 10)
	crown := env.avatarItem(t, "hat", "crown", 200)

	_, err := env.engine.Shop.Purchase(context.Background(), child.ID, crown.ID)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(10), env.balance(t, child.ID))

	var owned int64
	require.NoError(t, env.db.DB.Model(&entities.UserAvatarItem{}).Where("account_id = ?", child.ID).Count(&owned).Error)
	assert.Zero(t, owned)
}

func TestShop_FreeItem(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	starter := env.avatarItem(t, "background", "plain", 0)

	_, err := env.engine.Shop.Purchase(context.Background(), child.ID, starter.ID)
	require.NoError(t, err)
	assert.Zero(t, env.balance(t, child.ID))
}

func TestShop_EquipSwapsWithinSlot(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	env.grant(t, child.ID, 100)
	a := env.avatarItem(t, "hat", "cap", 10)
	b := env.avatarItem(t, "hat", "beret", 10)
	glasses := env.avatarItem(t, "glasses", "round", 10)

	for _, item := range []entities.AvatarItem{a, b, glasses} {
		_, err := env.engine.Shop.Purchase(ctx, child.ID, item.ID)
		require.NoError(t, err)
	}

	_, err := env.engine.Shop.Equip(ctx, child.ID, a.ID)
	require.NoError(t, err)
	_, err = env.engine.Shop.Equip(ctx, child.ID, glasses.ID)
	require.NoError(t, err)
	equipped, err := env.engine.Shop.Equip(ctx, child.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, equipped.Equipped)

	var hats []entities.UserAvatarItem
	require.NoError(t, env.db.DB.Where("account_id = ? AND slot = ? AND equipped = ?", child.ID, "hat", true).Find(&hats).Error)
	require.Len(t, hats, 1)
	assert.Equal(t, b.ID, hats[0].AvatarItemID)

	bySlot, err := env.engine.Shop.Equipped(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, bySlot, 2)
	assert.Equal(t, b.ID, bySlot["hat"].AvatarItemID)
	assert.Equal(t, glasses.ID, bySlot["glasses"].AvatarItemID)

	// Equipping the current item again is harmless.
	_, err = env.engine.Shop.Equip(ctx, child.ID, b.ID)
	require.NoError(t, err)

	_, err = env.engine.Shop.Unequip(ctx, child.ID, b.ID)
	require.NoError(t, err)
	bySlot, err = env.engine.Shop.Equipped(ctx, child.ID)
	require.NoError(t, err)
	assert.NotContains(t, bySlot, "hat")
}

func TestShop_EquipRequiresOwnership(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	hat := env.avatarItem(t, "hat", "top", 10)

	_, err := env.engine.Shop.Equip(context.Background(), child.ID, hat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShop_OnlyOneEquippedPerSlotIsEnforcedByStore(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	a := env.avatarItem(t, "pet", "cat", 0)
	b := env.avatarItem(t, "pet", "dog", 0)
	for _, item := range []entities.AvatarItem{a, b} {
		_, err := env.engine.Shop.Purchase(ctx, child.ID, item.ID)
		require.NoError(t, err)
	}

	err := env.db.DB.Model(&entities.UserAvatarItem{}).
		Where("account_id = ?", child.ID).
		Update("equipped", true).Error
	assert.Error(t, err)
}

func TestShop_ConcurrentEquip(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	hats := []entities.AvatarItem{
		env.avatarItem(t, "hat", "beanie", 0),
		env.avatarItem(t, "hat", "fedora", 0),
		env.avatarItem(t, "hat", "helmet", 0),
	}
	for _, hat := range hats {
		_, err := env.engine.Shop.Purchase(ctx, child.ID, hat.ID)
		require.NoError(t, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 12; i++ {
		hat := hats[i%len(hats)]
		g.Go(func() error {
			_, err := env.engine.Shop.Equip(gctx, child.ID, hat.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	var equipped int64
	require.NoError(t, env.db.DB.Model(&entities.UserAvatarItem{}).
		Where("account_id = ? AND slot = ? AND equipped", child.ID, "hat").
		Count(&equipped).Error)
	assert.Equal(t, int64(1), equipped)
}

func TestShop_ConcurrentEquipAndUnequip(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	ctx := context.Background()
	hats := []entities.AvatarItem{
		env.avatarItem(t, "hat", "beanie", 0),
		env.avatarItem(t, "hat", "fedora", 0),
	}
	for _, hat := range hats {
		_, err := env.engine.Shop.Purchase(ctx, child.ID, hat.ID)
		require.NoError(t, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		hat := hats[i%len(hats)]
		unequip := i%4 >= 2
		g.Go(func() error {
			var err error
			if unequip {
				_, err = env.engine.Shop.Unequip(gctx, child.ID, hat.ID)
			} else {
				_, err = env.engine.Shop.Equip(gctx, child.ID, hat.ID)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	var equipped int64
	require.NoError(t, env.db.DB.Model(&entities.UserAvatarItem{}).
		Where("account_id = ? AND slot = ? AND equipped", child.ID, "hat").
		Count(&equipped).Error)
	assert.LessOrEqual(t, equipped, int64(1))

	slots, err := env.engine.Shop.Equipped(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, slots, int(equipped))
}

func TestShop_UnequipUnknownAccount(t *testing.T) {
	env := setupEngine(t)
	hat := env.avatarItem(t, "hat", "beanie", 0)

	_, err := env.engine.Shop.Unequip(context.Background(), 9999, hat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
