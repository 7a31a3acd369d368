package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/fastchat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the chat server
//	-k string   directory holding per-user keypairs
//	-d string   PostgreSQL DSN of the key directory
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "address and port of the chat server")
	fs.StringVar(&cfg.DataDir, "k", cfg.DataDir, "key storage directory")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "key directory DSN")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
