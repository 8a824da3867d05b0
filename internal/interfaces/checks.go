package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/readquest/internal/database/ledger"
	"github.com/mrlokans/readquest/internal/database/notifications"
	"github.com/mrlokans/readquest/internal/progression"
	"github.com/mrlokans/readquest/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// NotificationStore implementations
var _ tasks.NotificationStore = (*notifications.Repository)(nil)

// NotificationCleaner implementations
var _ tasks.NotificationCleaner = (*notifications.Repository)(nil)

// DriftFinder implementations
var _ tasks.DriftFinder = (*ledger.Repository)(nil)

// =============================================================================
// Task Queue
// =============================================================================

// Dispatcher implementations
var _ progression.Dispatcher = (*tasks.NotificationDispatcher)(nil)

// Enqueuer implementations
var _ tasks.Enqueuer = (*tasks.Client)(nil)

// Deliverer implementations
var _ tasks.Deliverer = tasks.LogDeliverer{}
var _ tasks.Deliverer = (*tasks.RedisDeliverer)(nil)
