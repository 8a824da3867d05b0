package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/readquest/internal/entities"
)

// Shop sells cosmetic avatar items and keeps at most one item equipped per
// slot for each account.
type Shop struct {
	engine *Engine
}

// Purchase debits the item's cost and adds it, unequipped, to the account.
func (s *Shop) Purchase(ctx context.Context, accountID, itemID uint) (*entities.UserAvatarItem, error) {
	e := s.engine
	var owned *entities.UserAvatarItem
	err := e.InTx(ctx, func(tx *Tx) error {
		account, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}
		var item entities.AvatarItem
		if err := tx.DB.First(&item, itemID).Error; err != nil {
			return storeError("load avatar item", "avatar item", itemID, err)
		}
		if _, err := findOwned(tx, account.ID, item.ID); err == nil {
			return fmt.Errorf("avatar item %d: %w", itemID, ErrAlreadyOwned)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		owned = &entities.UserAvatarItem{
			PurchaseRef:  uuid.NewString(),
			AccountID:    account.ID,
			AvatarItemID: item.ID,
			Slot:         item.ItemType,
			PurchasedAt:  e.clock.Now(),
		}
		if item.PointsCost > 0 {
			if _, err := e.Ledger.Debit(ctx, tx, account.ID, item.PointsCost, entities.SourceAvatarPurchase, owned.PurchaseRef); err != nil {
				return err
			}
		}
		res := tx.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(owned)
		if res.Error != nil {
			return fmt.Errorf("create avatar item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("avatar item %d: %w", itemID, ErrAlreadyOwned)
		}
		owned.AvatarItem = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}

// Equip makes the owned item the only equipped one in its slot. Touching the
// account row first serializes concurrent equips for the same account.
func (s *Shop) Equip(ctx context.Context, accountID, itemID uint) (*entities.UserAvatarItem, error) {
	var owned *entities.UserAvatarItem
	err := s.engine.InTx(ctx, func(tx *Tx) error {
		if _, err := lockAccount(tx, accountID); err != nil {
			return err
		}
		var err error
		if owned, err = findOwned(tx, accountID, itemID); err != nil {
			return err
		}
		if owned.Equipped {
			return nil
		}

		err = tx.DB.Model(&entities.UserAvatarItem{}).
			Where("account_id = ? AND slot = ? AND id <> ? AND equipped = ?", accountID, owned.Slot, owned.ID, true).
			Update("equipped", false).Error
		if err != nil {
			return fmt.Errorf("unequip slot %s: %w", owned.Slot, err)
		}
		if err := tx.DB.Model(owned).Update("equipped", true).Error; err != nil {
			return fmt.Errorf("equip avatar item: %w", err)
		}
		owned.Equipped = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}

// Unequip clears the item from its slot. Unequipping an item that is not
// equipped changes nothing.
func (s *Shop) Unequip(ctx context.Context, accountID, itemID uint) (*entities.UserAvatarItem, error) {
	var owned *entities.UserAvatarItem
	err := s.engine.InTx(ctx, func(tx *Tx) error {
		if _, err := lockAccount(tx, accountID); err != nil {
			return err
		}
		var err error
		if owned, err = findOwned(tx, accountID, itemID); err != nil {
			return err
		}
		if !owned.Equipped {
			return nil
		}
		if err := tx.DB.Model(owned).Update("equipped", false).Error; err != nil {
			return fmt.Errorf("unequip avatar item: %w", err)
		}
		owned.Equipped = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}

// Equipped returns the account's equipped items keyed by slot.
func (s *Shop) Equipped(ctx context.Context, accountID uint) (map[string]entities.UserAvatarItem, error) {
	var items []entities.UserAvatarItem
	err := s.engine.db.WithContext(ctx).
		Preload("AvatarItem").
		Where("account_id = ? AND equipped = ?", accountID, true).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list equipped items: %w", err)
	}
	out := make(map[string]entities.UserAvatarItem, len(items))
	for _, item := range items {
		out[item.Slot] = item
	}
	return out, nil
}

func findOwned(tx *Tx, accountID, itemID uint) (*entities.UserAvatarItem, error) {
	var owned entities.UserAvatarItem
	err := tx.DB.Preload("AvatarItem").
		Where("account_id = ? AND avatar_item_id = ?", accountID, itemID).
		First(&owned).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("avatar item %d not owned by account %d: %w", itemID, accountID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load owned avatar item: %w", err)
	}
	return &owned, nil
}
