package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/readquest/internal/cli"
	"github.com/mrlokans/readquest/internal/config"
	"github.com/mrlokans/readquest/internal/entrypoint"
	"github.com/mrlokans/readquest/internal/logger"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "worker" command, run the task workers and scheduler
	if len(os.Args) < 2 || os.Args[1] == "worker" {
		cfg := config.NewConfig()
		if err := entrypoint.Run(cfg, Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	log, err := logger.New(config.NewConfig().Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var cmd command
	switch name {
	case "seed":
		cmd = cli.NewSeedCommand(log)
	case "reconcile":
		cmd = cli.NewReconcileCommand(log)
	case "version":
		fmt.Printf("readquest %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  worker      Run notification delivery and nightly ledger reconciliation (default)\n")
	fmt.Fprintf(os.Stderr, "  seed        Migrate the database, install catalogs, optionally create a family\n")
	fmt.Fprintf(os.Stderr, "  reconcile   Report accounts whose balance drifted from the ledger\n")
	fmt.Fprintf(os.Stderr, "  version     Print version information\n")
	fmt.Fprintf(os.Stderr, "  help        Show this help message\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
