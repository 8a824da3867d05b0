package progression

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/readquest/internal/database"
	"github.com/mrlokans/readquest/internal/entities"
)

type AccountInput struct {
	Username    string
	DisplayName string
	Timezone    string // IANA name; empty uses the configured default
}

// Accounts manages the two-level family tree: guardians (PARENT) and their
// dependents (CHILD). A dependent points at its guardian by id only.
type Accounts struct {
	engine *Engine
}

func (a *Accounts) CreateGuardian(ctx context.Context, in AccountInput) (*entities.Account, error) {
	return a.create(ctx, in, entities.AccountRoleParent, nil)
}

// CreateDependent adds a CHILD account under an existing guardian.
func (a *Accounts) CreateDependent(ctx context.Context, parentID uint, in AccountInput) (*entities.Account, error) {
	return a.create(ctx, in, entities.AccountRoleChild, &parentID)
}

func (a *Accounts) create(ctx context.Context, in AccountInput, role entities.AccountRole, parentID *uint) (*entities.Account, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", ErrInvalidAccount)
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return nil, fmt.Errorf("timezone %q: %w", in.Timezone, ErrInvalidAccount)
		}
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}

	account := &entities.Account{
		Username:    username,
		DisplayName: displayName,
		Role:        role,
		ParentID:    parentID,
		Timezone:    in.Timezone,
	}
	err := a.engine.InTx(ctx, func(tx *Tx) error {
		if parentID != nil {
			parent, err := loadAccount(tx, *parentID)
			if err != nil {
				return err
			}
			if !parent.IsGuardian() {
				return fmt.Errorf("account %d cannot have dependents: %w", parent.ID, ErrInvalidAccount)
			}
		}
		if err := tx.DB.Create(account).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("username %q: %w", username, ErrAccountExists)
			}
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.engine.log.Info("account created", "account_id", account.ID, "role", role)
	return account, nil
}

func (a *Accounts) Get(ctx context.Context, accountID uint) (*entities.Account, error) {
	var account entities.Account
	if err := a.engine.db.WithContext(ctx).First(&account, accountID).Error; err != nil {
		return nil, storeError("load account", "account", accountID, err)
	}
	return &account, nil
}

// Children lists a guardian's dependents.
func (a *Accounts) Children(ctx context.Context, guardianID uint) ([]entities.Account, error) {
	var children []entities.Account
	err := a.engine.db.WithContext(ctx).
		Where("parent_id = ? AND role = ?", guardianID, entities.AccountRoleChild).
		Order("id").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

func (a *Accounts) IsGuardianOf(ctx context.Context, guardianID, childID uint) (bool, error) {
	guardian, err := a.Get(ctx, guardianID)
	if err != nil {
		return false, err
	}
	child, err := a.Get(ctx, childID)
	if err != nil {
		return false, err
	}
	return guardian.IsGuardianOf(child), nil
}

// Streak returns the account's streak as of now. A stored streak whose last
// reading day is before yesterday reads as zero.
func (a *Accounts) Streak(ctx context.Context, accountID uint) (int, error) {
	account, err := a.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	state := StreakState{Days: account.StreakDays, LastReadDate: account.LastReadDate}
	return EffectiveStreak(state, a.engine.clock.Now(), a.engine.location(account.Timezone)), nil
}
