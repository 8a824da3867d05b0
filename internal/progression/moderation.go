package progression

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/readquest/internal/entities"
)

// Moderation is the PENDING -> APPROVED | REJECTED gate a guardian applies to
// books their dependents submit. Both outcomes are terminal.
type Moderation struct {
	engine *Engine
}

// SubmitBook adds a book to the owner's shelf. Books added by a guardian are
// approved on the spot; a dependent's book waits for the guardian.
func (m *Moderation) SubmitBook(ctx context.Context, ownerID uint, title, author string) (*entities.Book, error) {
	e := m.engine
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("book title is required: %w", ErrInvalidInput)
	}

	var book *entities.Book
	err := e.InTx(ctx, func(tx *Tx) error {
		owner, err := loadAccount(tx, ownerID)
		if err != nil {
			return err
		}
		book = &entities.Book{
			OwnerID: owner.ID,
			Title:   title,
			Author:  strings.TrimSpace(author),
			Status:  entities.BookStatusPending,
		}
		if owner.IsGuardian() {
			now := e.clock.Now()
			book.Status = entities.BookStatusApproved
			book.ModeratedByID = &owner.ID
			book.ModeratedAt = &now
		}
		if err := tx.DB.Create(book).Error; err != nil {
			return fmt.Errorf("create book: %w", err)
		}

		if owner.ParentID != nil && book.Status == entities.BookStatusPending {
			e.notifier.emit(tx, *owner.ParentID, entities.NotificationBookSubmitted,
				"Book waiting for approval",
				fmt.Sprintf("%s added %q", owner.DisplayName, book.Title),
				map[string]any{"book_id": book.ID, "owner_id": owner.ID},
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (m *Moderation) Approve(ctx context.Context, bookID, actorID uint) (*entities.Book, error) {
	return m.moderate(ctx, bookID, actorID, entities.BookStatusApproved)
}

func (m *Moderation) Reject(ctx context.Context, bookID, actorID uint) (*entities.Book, error) {
	return m.moderate(ctx, bookID, actorID, entities.BookStatusRejected)
}

// moderate moves a PENDING book to target. Repeating the decision that was
// already made returns the book unchanged; reversing it is refused.
func (m *Moderation) moderate(ctx context.Context, bookID, actorID uint, target entities.BookStatus) (*entities.Book, error) {
	e := m.engine
	var book entities.Book
	err := e.InTx(ctx, func(tx *Tx) error {
		if err := tx.DB.First(&book, bookID).Error; err != nil {
			return storeError("load book", "book", bookID, err)
		}
		actor, err := loadAccount(tx, actorID)
		if err != nil {
			return err
		}
		owner, err := loadAccount(tx, book.OwnerID)
		if err != nil {
			return err
		}
		if !actor.IsGuardianOf(owner) {
			return fmt.Errorf("account %d moderating book %d: %w", actorID, bookID, ErrUnauthorizedTransition)
		}

		if book.Status == target {
			return nil
		}
		if book.Status != entities.BookStatusPending {
			return fmt.Errorf("book %d is %s: %w", bookID, book.Status, ErrInvalidTransition)
		}

		now := e.clock.Now()
		res := tx.DB.Model(&entities.Book{}).
			Where("id = ? AND status = ?", bookID, entities.BookStatusPending).
			Updates(map[string]any{"status": target, "moderated_by_id": actorID, "moderated_at": now})
		if res.Error != nil {
			return fmt.Errorf("moderate book: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("book %d changed concurrently: %w", bookID, ErrInvalidTransition)
		}
		book.Status = target
		book.ModeratedByID = &actor.ID
		book.ModeratedAt = &now

		e.notifier.emit(tx, owner.ID, entities.NotificationBookModerated,
			"Book "+strings.ToLower(string(target)),
			fmt.Sprintf("%q was %s", book.Title, strings.ToLower(string(target))),
			map[string]any{"book_id": book.ID, "status": target},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// PendingBooks lists books from the guardian's dependents that wait for a decision.
func (m *Moderation) PendingBooks(ctx context.Context, guardianID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := m.engine.db.WithContext(ctx).
		Where("status = ? AND owner_id IN (?)", entities.BookStatusPending,
			m.engine.db.Model(&entities.Account{}).Select("id").Where("parent_id = ?", guardianID)).
		Order("created_at, id").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("list pending books: %w", err)
	}
	return books, nil
}

// readableBook loads a book the account may record activity against: it must
// belong to the account's family and be approved.
func readableBook(tx *Tx, account *entities.Account, bookID uint) (*entities.Book, error) {
	var book entities.Book
	if err := tx.DB.First(&book, bookID).Error; err != nil {
		return nil, storeError("load book", "book", bookID, err)
	}
	if book.OwnerID != account.ID {
		owner, err := loadAccount(tx, book.OwnerID)
		if err != nil {
			return nil, err
		}
		if owner.FamilyID() != account.FamilyID() {
			return nil, notFound("book", bookID)
		}
	}
	if !book.IsApproved() {
		return nil, fmt.Errorf("book %d is %s: %w", bookID, book.Status, ErrBookNotApproved)
	}
	return &book, nil
}
