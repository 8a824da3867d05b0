package progression

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/readquest/internal/entities"
)

// Rewards runs the claim state machine: AVAILABLE -> REDEEMED -> COMPLETED.
// AVAILABLE has no row; a claim is created already REDEEMED, together with
// the debit that pays for it.
type Rewards struct {
	engine *Engine
}

// CreateReward defines a reward for the guardian's family.
func (r *Rewards) CreateReward(ctx context.Context, parentID uint, title, description string, cost int64) (*entities.Reward, error) {
	title = strings.TrimSpace(title)
	if title == "" || cost < 0 {
		return nil, fmt.Errorf("reward %q costing %d: %w", title, cost, ErrInvalidInput)
	}

	var reward *entities.Reward
	err := r.engine.InTx(ctx, func(tx *Tx) error {
		parent, err := loadAccount(tx, parentID)
		if err != nil {
			return err
		}
		if !parent.IsGuardian() {
			return fmt.Errorf("account %d defining a reward: %w", parentID, ErrUnauthorizedTransition)
		}
		reward = &entities.Reward{
			ParentID:    parent.ID,
			Title:       title,
			Description: strings.TrimSpace(description),
			PointsCost:  cost,
			Active:      true,
		}
		if err := tx.DB.Create(reward).Error; err != nil {
			return fmt.Errorf("create reward: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// Available lists the active rewards of the account's family.
func (r *Rewards) Available(ctx context.Context, accountID uint) ([]entities.Reward, error) {
	var rewards []entities.Reward
	err := r.engine.InTx(ctx, func(tx *Tx) error {
		account, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		return tx.DB.Where("parent_id = ? AND active = ?", account.FamilyID(), true).
			Order("points_cost, id").
			Find(&rewards).Error
	})
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

// Redeem debits the reward's cost and opens a REDEEMED claim. The debit runs
// first: of two concurrent redemptions the loser sees the reduced balance.
// While a claim is open for the same reward the call fails with
// ErrAlreadyRedeemed and the debit is rolled back.
func (r *Rewards) Redeem(ctx context.Context, accountID, rewardID uint) (*entities.UserReward, error) {
	e := r.engine
	var claim *entities.UserReward
	err := e.InTx(ctx, func(tx *Tx) error {
		account, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}
		var reward entities.Reward
		if err := tx.DB.First(&reward, rewardID).Error; err != nil {
			return storeError("load reward", "reward", rewardID, err)
		}
		if !reward.Active || reward.ParentID != account.FamilyID() {
			return notFound("reward", rewardID)
		}

		claim = &entities.UserReward{
			ClaimRef:    uuid.NewString(),
			AccountID:   account.ID,
			RewardID:    reward.ID,
			Status:      entities.UserRewardStatusRedeemed,
			PointsSpent: reward.PointsCost,
			RedeemedAt:  e.clock.Now(),
		}
		if reward.PointsCost > 0 {
			if _, err := e.Ledger.Debit(ctx, tx, account.ID, reward.PointsCost, entities.SourceRewardRedemption, claim.ClaimRef); err != nil {
				return err
			}
		}

		res := tx.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(claim)
		if res.Error != nil {
			return fmt.Errorf("create reward claim: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("reward %d: %w", rewardID, ErrAlreadyRedeemed)
		}
		claim.Reward = reward

		e.notifier.emit(tx, reward.ParentID, entities.NotificationRewardRedeemed,
			"Reward redeemed",
			fmt.Sprintf("%s redeemed %q", account.DisplayName, reward.Title),
			map[string]any{"user_reward_id": claim.ID, "account_id": account.ID, "points_spent": reward.PointsCost},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("reward redeemed", "account_id", accountID, "reward_id", rewardID, "claim_ref", claim.ClaimRef)
	return claim, nil
}

// Complete lets the dependent's guardian mark a redeemed claim fulfilled.
// Completing an already completed claim returns it unchanged.
func (r *Rewards) Complete(ctx context.Context, userRewardID, approverID uint) (*entities.UserReward, error) {
	e := r.engine
	var claim entities.UserReward
	err := e.InTx(ctx, func(tx *Tx) error {
		if err := tx.DB.Preload("Reward").First(&claim, userRewardID).Error; err != nil {
			return storeError("load reward claim", "user reward", userRewardID, err)
		}
		approver, err := loadAccount(tx, approverID)
		if err != nil {
			return err
		}
		owner, err := loadAccount(tx, claim.AccountID)
		if err != nil {
			return err
		}
		if !approver.IsGuardianOf(owner) {
			return fmt.Errorf("account %d completing claim %d: %w", approverID, userRewardID, ErrUnauthorizedTransition)
		}
		if claim.Status == entities.UserRewardStatusCompleted {
			return nil
		}

		now := e.clock.Now()
		res := tx.DB.Model(&entities.UserReward{}).
			Where("id = ? AND status = ?", claim.ID, entities.UserRewardStatusRedeemed).
			Updates(map[string]any{
				"status":          entities.UserRewardStatusCompleted,
				"completed_at":    now,
				"completed_by_id": approver.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("complete reward claim: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Someone else completed it first.
			return tx.DB.Preload("Reward").First(&claim, userRewardID).Error
		}
		claim.Status = entities.UserRewardStatusCompleted
		claim.CompletedAt = &now
		claim.CompletedByID = &approver.ID

		e.notifier.emit(tx, owner.ID, entities.NotificationRewardCompleted,
			"Reward ready!",
			fmt.Sprintf("%q has been handed over", claim.Reward.Title),
			map[string]any{"user_reward_id": claim.ID},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// Claims lists the account's reward claims, newest first.
func (r *Rewards) Claims(ctx context.Context, accountID uint) ([]entities.UserReward, error) {
	var claims []entities.UserReward
	err := r.engine.db.WithContext(ctx).
		Preload("Reward").
		Where("account_id = ?", accountID).
		Order("redeemed_at DESC, id DESC").
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("list reward claims: %w", err)
	}
	return claims, nil
}
