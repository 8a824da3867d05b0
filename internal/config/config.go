package config

import (
	"time"

	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		Global
		Log
		Database
		Progression
		Tasks
		Delivery
		Reconcile
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Mode string // "dev" or "prod"
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file path
		DSN    string // Postgres connection string
		Debug  bool   // Log every SQL statement
	}
	Progression struct {
		PointsPerMinute       int64
		QuizPointsPerCorrect  int64
		QuizPassPercent       int
		QuizRetryCooldown     time.Duration
		MaxSessionMinutes     int
		DefaultTimezone       string // Used when an account has no timezone of its own
		NotificationsDisabled bool
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Delivery struct {
		RedisAddr     string // Empty logs notifications instead of publishing them
		ChannelPrefix string
	}
	Reconcile struct {
		Enabled                   bool
		Schedule                  string // Cron format: "0 3 * * *" = nightly at 03:00
		NotificationRetentionDays int    // Delivered notifications older than this are purged on the same schedule
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("log_mode", "dev")

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_debug", false)

	// Progression defaults
	v.SetDefault("points_per_minute", 1)
	v.SetDefault("quiz_points_per_correct", 5)
	v.SetDefault("quiz_pass_percent", 70)
	v.SetDefault("quiz_retry_cooldown", "1h")
	v.SetDefault("max_session_minutes", 240)
	v.SetDefault("default_timezone", "UTC")
	v.SetDefault("notifications_disabled", false)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_channel_prefix", "readquest:notifications")

	v.SetDefault("reconcile_enabled", true)
	v.SetDefault("reconcile_schedule", "0 3 * * *") // Nightly at 03:00
	v.SetDefault("notification_retention_days", 30)

	return &Config{
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Mode: v.GetString("LOG_MODE"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
			Debug:  v.GetBool("DATABASE_DEBUG"),
		},
		Progression: Progression{
			PointsPerMinute:       v.GetInt64("POINTS_PER_MINUTE"),
			QuizPointsPerCorrect:  v.GetInt64("QUIZ_POINTS_PER_CORRECT"),
			QuizPassPercent:       v.GetInt("QUIZ_PASS_PERCENT"),
			QuizRetryCooldown:     v.GetDuration("QUIZ_RETRY_COOLDOWN"),
			MaxSessionMinutes:     v.GetInt("MAX_SESSION_MINUTES"),
			DefaultTimezone:       v.GetString("DEFAULT_TIMEZONE"),
			NotificationsDisabled: v.GetBool("NOTIFICATIONS_DISABLED"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Delivery: Delivery{
			RedisAddr:     v.GetString("REDIS_ADDR"),
			ChannelPrefix: v.GetString("REDIS_CHANNEL_PREFIX"),
		},
		Reconcile: Reconcile{
			Enabled:  v.GetBool("RECONCILE_ENABLED"),
			Schedule: v.GetString("RECONCILE_SCHEDULE"),

			NotificationRetentionDays: v.GetInt("NOTIFICATION_RETENTION_DAYS"),
		},
	}
}

// DefaultProgression returns the progression rules used when nothing is configured.
func DefaultProgression() Progression {
	return Progression{
		PointsPerMinute:      1,
		QuizPointsPerCorrect: 5,
		QuizPassPercent:      70,
		QuizRetryCooldown:    time.Hour,
		MaxSessionMinutes:    240,
		DefaultTimezone:      "UTC",
	}
}
