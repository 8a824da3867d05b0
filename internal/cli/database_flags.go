package cli

import (
	"flag"

	"github.com/mrlokans/readquest/internal/config"
)

// databaseFlags registers the connection flags shared by every command,
// defaulting to the environment configuration.
func databaseFlags(fs *flag.FlagSet, cfg *config.Database) {
	env := config.NewConfig().Database
	*cfg = env

	driver := string(env.Driver)
	fs.Func("driver", "Database driver: sqlite or postgres (default \""+driver+"\")", func(v string) error {
		cfg.Driver = config.DatabaseDriver(v)
		return nil
	})
	fs.StringVar(&cfg.Path, "db", env.Path, "Path to the SQLite database file")
	fs.StringVar(&cfg.DSN, "dsn", env.DSN, "PostgreSQL connection string")
	fs.BoolVar(&cfg.Debug, "debug-sql", env.Debug, "Log every SQL statement")
}
