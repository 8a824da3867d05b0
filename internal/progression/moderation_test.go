package progression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readquest/internal/entities"
)

func TestModeration_ChildSubmissionIsPending(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()

	book, err := env.engine.Moderation.SubmitBook(ctx, child.ID, " The Hobbit ", "Tolkien")
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusPending, book.Status)
	assert.Equal(t, "The Hobbit", book.Title)
	assert.Nil(t, book.ModeratedByID)

	pending, err := env.engine.Moderation.PendingBooks(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, book.ID, pending[0].ID)

	var notified int64
	require.NoError(t, env.db.DB.Model(&entities.Notification{}).
		Where("account_id = ? AND type = ?", parent.ID, entities.NotificationBookSubmitted).
		Count(&notified).Error)
	assert.Equal(t, int64(1), notified)
}

func TestModeration_Approve(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()

	book, err := env.engine.Moderation.SubmitBook(ctx, child.ID, "Wonder", "R. J. Palacio")
	require.NoError(t, err)

	approved, err := env.engine.Moderation.Approve(ctx, book.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusApproved, approved.Status)
	require.NotNil(t, approved.ModeratedByID)
	assert.Equal(t, parent.ID, *approved.ModeratedByID)

	again, err := env.engine.Moderation.Approve(ctx, book.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusApproved, again.Status)

	_, err = env.engine.Moderation.Reject(ctx, book.ID, parent.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestModeration_RejectIsTerminal(t *testing.T) {
	env := setupEngine(t)
	parent, child := env.family(t)
	ctx := context.Background()

	book, err := env.engine.Moderation.SubmitBook(ctx, child.ID, "Dark Tales", "")
	require.NoError(t, err)
	_, err = env.engine.Moderation.Reject(ctx, book.ID, parent.ID)
	require.NoError(t, err)

	_, err = env.engine.Moderation.Approve(ctx, book.ID, parent.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestModeration_RequiresGuardianOfOwner(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)
	otherParent, sibling := env.family(t)
	ctx := context.Background()

	book, err := env.engine.Moderation.SubmitBook(ctx, child.ID, "Holes", "Louis Sachar")
	require.NoError(t, err)

	for _, actor := range []uint{child.ID, otherParent.ID, sibling.ID} {
		_, err := env.engine.Moderation.Approve(ctx, book.ID, actor)
		assert.ErrorIs(t, err, ErrUnauthorizedTransition)
	}

	_, err = env.engine.Moderation.Approve(ctx, 9999, otherParent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModeration_SubmitValidation(t *testing.T) {
	env := setupEngine(t)
	_, child := env.family(t)

	_, err := env.engine.Moderation.SubmitBook(context.Background(), child.ID, "", "Anon")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.engine.Moderation.SubmitBook(context.Background(), 9999, "Ghost", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
