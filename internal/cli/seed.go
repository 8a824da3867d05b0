package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/database"
	"github.com/mrlokans/readquest/internal/logger"
	"github.com/mrlokans/readquest/internal/progression"
)

type SeedCommand struct {
	Database config.Database
	Guardian string
	Children []string
	Timezone string

	log *logger.Logger
}

func NewSeedCommand(log *logger.Logger) *SeedCommand {
	if log == nil {
		log = logger.NewNop()
	}
	return &SeedCommand{log: log.With("command", "seed")}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	databaseFlags(fs, &cmd.Database)
	fs.StringVar(&cmd.Guardian, "guardian", "", "Username of a guardian account to create")
	fs.Func("child", "Username of a dependent to create under -guardian (repeatable)", func(v string) error {
		cmd.Children = append(cmd.Children, v)
		return nil
	})
	fs.StringVar(&cmd.Timezone, "tz", "", "IANA timezone for the created accounts")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Migrate the database, install the achievement and avatar catalogs and optionally create a family.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s seed\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s seed -guardian alex -child sam -child kit -tz Europe/London\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(cmd.Children) > 0 && cmd.Guardian == "" {
		fs.Usage()
		return fmt.Errorf("-child requires -guardian")
	}

	return nil
}

func (cmd *SeedCommand) Run() error {
	db, err := database.NewDatabase(cmd.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			cmd.log.Warn("failed to close database", "error", err)
		}
	}()

	var achievements, items int64
	if err := db.DB.Table("achievements").Count(&achievements).Error; err != nil {
		return fmt.Errorf("failed to count achievements: %w", err)
	}
	if err := db.DB.Table("avatar_items").Count(&items).Error; err != nil {
		return fmt.Errorf("failed to count avatar items: %w", err)
	}
	cmd.log.Info("catalog seeded", "achievements", achievements, "avatar_items", items)
	fmt.Printf("Catalog ready: %d achievements, %d avatar items\n", achievements, items)

	if cmd.Guardian == "" {
		return nil
	}

	ctx := context.Background()
	engine := progression.New(db.DB, config.NewConfig().Progression)

	guardian, err := engine.Accounts.CreateGuardian(ctx, progression.AccountInput{Username: cmd.Guardian, Timezone: cmd.Timezone})
	if err != nil {
		return fmt.Errorf("failed to create guardian %s: %w", cmd.Guardian, err)
	}
	fmt.Printf("Created guardian %s (id %d)\n", guardian.Username, guardian.ID)

	for _, name := range cmd.Children {
		child, err := engine.Accounts.CreateDependent(ctx, guardian.ID, progression.AccountInput{Username: name, Timezone: cmd.Timezone})
		if err != nil {
			return fmt.Errorf("failed to create dependent %s: %w", name, err)
		}
		fmt.Printf("Created dependent %s (id %d)\n", child.Username, child.ID)
	}

	return nil
}
