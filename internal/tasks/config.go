package tasks

import (
	"time"

	"github.com/mrlokans/readquest/internal/config"
)

// Config holds the worker pool settings. Retry and retention policy is set
// per queue by each task's Config method.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished tasks past their retention are purged. Default: 1h
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

// FromAppConfig maps the environment-driven settings onto the queue config.
// Unset values fall back to DefaultConfig.
func FromAppConfig(cfg config.Tasks) Config {
	out := DefaultConfig()
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.ReleaseAfter > 0 {
		out.ReleaseAfter = cfg.ReleaseAfter
	}
	if cfg.CleanupInterval > 0 {
		out.CleanupInterval = cfg.CleanupInterval
	}
	return out
}
