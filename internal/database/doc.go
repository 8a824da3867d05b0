// Package database provides the data access layer for the application.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup, migrations, catalog seeding
//	├── errors.go        # Store error translation (unique violations, not found)
//	├── ledger/          # Read-side ledger queries and balance reconciliation
//	└── notifications/   # Notification persistence and delivery bookkeeping
//
// Both SQLite (default, file based) and PostgreSQL are supported. Invariants
// that must hold under concurrency are backed by the store itself: unique
// indexes for every idempotency key, partial unique indexes for "one open
// claim per reward" and "one equipped item per slot", and a CHECK constraint
// keeping point balances non-negative.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//	ledgerRepo := ledger.NewRepository(db.DB)
//	drifts, err := ledgerRepo.FindDrift(ctx)
//
// Write paths that must be atomic live in internal/progression and run inside
// db.Transaction.
package database
