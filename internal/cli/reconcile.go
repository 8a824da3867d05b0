package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/database"
	"github.com/mrlokans/readquest/internal/database/ledger"
	"github.com/mrlokans/readquest/internal/logger"
	"github.com/mrlokans/readquest/internal/tasks"
)

type ReconcileCommand struct {
	Database    config.Database
	AccountID   uint
	FailOnDrift bool

	log *logger.Logger
}

func NewReconcileCommand(log *logger.Logger) *ReconcileCommand {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReconcileCommand{log: log.With("command", "reconcile")}
}

func (cmd *ReconcileCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)

	databaseFlags(fs, &cmd.Database)
	fs.UintVar(&cmd.AccountID, "account", 0, "Check a single account instead of all of them")
	fs.BoolVar(&cmd.FailOnDrift, "fail-on-drift", false, "Exit with an error when any account has drifted")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reconcile [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compare every stored points balance with the sum of its ledger entries.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s reconcile\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s reconcile -account 42\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s reconcile -driver postgres -dsn postgres://... -fail-on-drift\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *ReconcileCommand) Run() error {
	db, err := database.NewDatabase(cmd.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			cmd.log.Warn("failed to close database", "error", err)
		}
	}()

	drifts, err := cmd.findDrift(context.Background(), ledger.NewRepository(db.DB))
	if err != nil {
		return err
	}

	if len(drifts) == 0 {
		fmt.Println("All balances match their ledger entries")
		return nil
	}

	fmt.Printf("\n=== Drifted accounts ===\n")
	for i, d := range drifts {
		fmt.Printf("%d. account %d: stored %d, ledger %d (delta %+d)\n",
			i+1, d.AccountID, d.StoredBalance, d.LedgerBalance, d.Delta())
	}

	if cmd.FailOnDrift {
		return fmt.Errorf("%d accounts drifted from their ledger", len(drifts))
	}
	return nil
}

func (cmd *ReconcileCommand) findDrift(ctx context.Context, repo *ledger.Repository) ([]ledger.Drift, error) {
	if cmd.AccountID == 0 {
		return tasks.Reconcile(ctx, repo, cmd.log)
	}
	drift, err := repo.DriftForAccount(ctx, cmd.AccountID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, fmt.Errorf("account %d not found", cmd.AccountID)
		}
		return nil, fmt.Errorf("failed to reconcile account %d: %w", cmd.AccountID, err)
	}
	if drift == nil {
		return nil, nil
	}
	return []ledger.Drift{*drift}, nil
}
