package config

import (
	"flag"
	"os"
	"time"

	"github.com/dkotenko/addrhub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the account service API
//	-d string   data directory for the secure store
//	-b string   path of the local cache database
//	-r int      reconcile interval in seconds
//
// os.Args is filtered to the flags handled here so the JSON config flags
// and future subcommand flags do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-b", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIEndpoint, "a", cfg.APIEndpoint, "base URL of the account service API")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory for the secure store")
	fs.StringVar(&cfg.DatabaseFile, "b", cfg.DatabaseFile, "path of the local cache database")
	reconcile := fs.Int("r", int(cfg.ReconcileInterval.Seconds()), "reconcile interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ReconcileInterval = time.Duration(*reconcile) * time.Second
}
