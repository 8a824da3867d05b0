package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/entities"
)

var defaultAchievements = []entities.Achievement{
	{Name: "First Chapter", Description: "Finish your first reading session", Type: entities.AchievementTypeSessionCount, Requirement: 1, BonusPoints: 5},
	{Name: "Bookworm", Description: "Finish 25 reading sessions", Type: entities.AchievementTypeSessionCount, Requirement: 25, BonusPoints: 50},
	{Name: "Three in a Row", Description: "Read three days in a row", Type: entities.AchievementTypeStreakLength, Requirement: 3, BonusPoints: 15},
	{Name: "Week Warrior", Description: "Read seven days in a row", Type: entities.AchievementTypeStreakLength, Requirement: 7, BonusPoints: 50},
	{Name: "Century", Description: "Earn 100 points", Type: entities.AchievementTypePointsTotal, Requirement: 100, BonusPoints: 10},
	{Name: "Point Collector", Description: "Earn 1000 points", Type: entities.AchievementTypePointsTotal, Requirement: 1000, BonusPoints: 100},
	{Name: "Quiz Whiz", Description: "Pass your first quiz", Type: entities.AchievementTypeQuizPassCount, Requirement: 1, BonusPoints: 10},
	{Name: "Quiz Master", Description: "Pass ten quizzes", Type: entities.AchievementTypeQuizPassCount, Requirement: 10, BonusPoints: 75},
	{Name: "Marathon Reader", Description: "Read for 600 minutes in total", Type: entities.AchievementTypeMinutesTotal, Requirement: 600, BonusPoints: 60},
}

var defaultAvatarItems = []entities.AvatarItem{
	{ItemType: "hat", Value: "wizard", Style: "classic", PointsCost: 50},
	{ItemType: "hat", Value: "crown", Style: "gold", PointsCost: 200},
	{ItemType: "glasses", Value: "round", Style: "classic", PointsCost: 30},
	{ItemType: "background", Value: "library", Style: "cozy", PointsCost: 80},
	{ItemType: "background", Value: "space", Style: "night", PointsCost: 120},
	{ItemType: "pet", Value: "owl", Style: "snowy", PointsCost: 150},
}

// partialIndexes back invariants AutoMigrate cannot express through struct tags.
// The WHERE clauses are valid on both SQLite and PostgreSQL.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_rewards_open ON user_rewards (account_id, reward_id) WHERE status = 'REDEEMED'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_avatar_items_equipped ON user_avatar_items (account_id, slot) WHERE equipped`,
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the configured store, migrates the schema and seeds the
// static achievement and avatar catalogs.
func NewDatabase(cfg config.Database) (*Database, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		return nil, err
	}

	if err := database.SeedCatalog(); err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	return database, nil
}

func openDialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver selected but DATABASE_DSN is empty")
		}
		return postgres.Open(cfg.DSN), nil
	case config.DatabaseDriverSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite driver selected but DATABASE_PATH is empty")
		}
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN makes every transaction take the write lock up front so that
// concurrent balance changes queue behind each other instead of failing.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal=WAL&_busy_timeout=10000&_txlock=immediate&_foreign_keys=1"
}

// Migrate creates or updates every table plus the partial unique indexes.
func (d *Database) Migrate() error {
	err := d.DB.AutoMigrate(
		&entities.Account{},
		&entities.Book{},
		&entities.ReadingSession{},
		&entities.QuizAttempt{},
		&entities.Achievement{},
		&entities.UserAchievement{},
		&entities.Reward{},
		&entities.UserReward{},
		&entities.AvatarItem{},
		&entities.UserAvatarItem{},
		&entities.Notification{},
		&entities.LedgerEntry{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range partialIndexes {
		if err := d.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SeedCatalog inserts the default achievements and avatar items. Existing rows
// are left untouched, so it is safe to run on every start.
func (d *Database) SeedCatalog() error {
	for _, achievement := range defaultAchievements {
		a := achievement
		if err := d.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&a).Error; err != nil {
			return fmt.Errorf("failed to create achievement %s: %w", a.Name, err)
		}
	}
	for _, item := range defaultAvatarItems {
		it := item
		if err := d.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&it).Error; err != nil {
			return fmt.Errorf("failed to create avatar item %s/%s: %w", it.ItemType, it.Value, err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
