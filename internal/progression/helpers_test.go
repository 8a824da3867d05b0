package progression

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/database"
	"github.com/mrlokans/readquest/internal/entities"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []uint
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ids []uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, ids...)
	return nil
}

func (d *recordingDispatcher) Dispatched() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint(nil), d.ids...)
}

type testEnv struct {
	db         *database.Database
	engine     *Engine
	clock      *testClock
	dispatcher *recordingDispatcher
}

// setupEngine opens a migrated SQLite database with an empty achievement
// catalog so point totals in tests are not skewed by seeded bonuses.
func setupEngine(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "progression.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.DB.Exec("DELETE FROM achievements").Error)

	env := &testEnv{
		db:         db,
		clock:      &testClock{now: time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)},
		dispatcher: &recordingDispatcher{},
	}
	env.engine = New(db.DB, config.DefaultProgression(), WithClock(env.clock), WithDispatcher(env.dispatcher))
	return env
}

func (env *testEnv) family(t *testing.T) (parent, child *entities.Account) {
	t.Helper()
	ctx := context.Background()
	parent, err := env.engine.Accounts.CreateGuardian(ctx, AccountInput{Username: "parent-" + uuid.NewString()[:8], DisplayName: "Mum"})
	require.NoError(t, err)
	child, err = env.engine.Accounts.CreateDependent(ctx, parent.ID, AccountInput{Username: "child-" + uuid.NewString()[:8], DisplayName: "Sam"})
	require.NoError(t, err)
	return parent, child
}

func (env *testEnv) approvedBook(t *testing.T, parent *entities.Account) *entities.Book {
	t.Helper()
	book, err := env.engine.Moderation.SubmitBook(context.Background(), parent.ID, "Matilda", "Roald Dahl")
	require.NoError(t, err)
	require.Equal(t, entities.BookStatusApproved, book.Status)
	return book
}

// grant credits points from a synthetic source.
func (env *testEnv) grant(t *testing.T, accountID uint, amount int64) {
	t.Helper()
	err := env.engine.InTx(context.Background(), func(tx *Tx) error {
		_, err := env.engine.Ledger.Credit(context.Background(), tx, accountID, amount, entities.SourceAchievement, "grant:"+uuid.NewString())
		return err
	})
	require.NoError(t, err)
}

func (env *testEnv) balance(t *testing.T, accountID uint) int64 {
	t.Helper()
	account, err := env.engine.Accounts.Get(context.Background(), accountID)
	require.NoError(t, err)
	return account.PointsBalance
}

// requireLedgerConsistent checks that the stored balance equals the sum of entries.
func (env *testEnv) requireLedgerConsistent(t *testing.T, accountID uint) {
	t.Helper()
	drift, err := env.engine.Ledger.Reconcile(context.Background(), accountID)
	require.NoError(t, err)
	require.Nil(t, drift, "ledger drift: %+v", drift)
}

func (env *testEnv) addAchievement(t *testing.T, a entities.Achievement) entities.Achievement {
	t.Helper()
	require.NoError(t, env.db.DB.Create(&a).Error)
	return a
}
