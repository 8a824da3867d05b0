package progression

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/readquest/internal/database"
)

// Business outcomes. Callers match them with errors.Is; none of them is a fault.
var (
	ErrDuplicateCredit        = errors.New("credit already applied for this source")
	ErrDuplicateDebit         = errors.New("debit already applied for this source")
	ErrInsufficientBalance    = errors.New("insufficient points balance")
	ErrAlreadyRedeemed        = errors.New("reward already redeemed")
	ErrAlreadyOwned           = errors.New("avatar item already owned")
	ErrBookNotApproved        = errors.New("book is not approved")
	ErrRetryCooldown          = errors.New("quiz retry cooldown active")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorizedTransition = errors.New("actor may not perform this transition")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrInvalidActivity        = errors.New("invalid activity")
	ErrInvalidAccount         = errors.New("invalid account")
	ErrInvalidInput           = errors.New("invalid input")
	ErrAccountExists          = errors.New("account already exists")
)

// InsufficientBalanceError reports the balance seen when a debit was refused.
type InsufficientBalanceError struct {
	AccountID uint
	Balance   int64
	Required  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("account %d: balance %d, required %d: %s", e.AccountID, e.Balance, e.Required, ErrInsufficientBalance)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// RetryCooldownError reports when the next quiz attempt will be accepted.
type RetryCooldownError struct {
	BookID     uint
	CanRetryAt time.Time
}

func (e *RetryCooldownError) Error() string {
	return fmt.Sprintf("book %d: retry allowed at %s: %s", e.BookID, e.CanRetryAt.Format(time.RFC3339), ErrRetryCooldown)
}

func (e *RetryCooldownError) Is(target error) bool {
	return target == ErrRetryCooldown
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// storeError keeps record-not-found errors in the domain taxonomy and wraps
// everything else as an operational failure.
func storeError(op, entity string, id uint, err error) error {
	if database.IsNotFound(err) {
		return notFound(entity, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
