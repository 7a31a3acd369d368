package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/fastchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":12345")
//	-d string   PostgreSQL DSN
//	-s string   password-hashing pepper
//	-i int      read idle timeout, seconds (0 disables)
//	-w int      per-line write timeout, seconds
//	-l int      max inbound line length, bytes
//	-q int      per-connection send queue length
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name (empty disables archival)
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-n int      archive interval, seconds
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
// Duration flags are accepted as integers in seconds and converted to
// time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-w", "-l", "-q", "-u", "-p", "-b", "-g", "-e", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Pepper, "s", config.Pepper, "password hashing pepper")

	idleTimeout := fs.Int("i", int(config.IdleTimeout.Seconds()), "idle timeout (in seconds)")
	writeTimeout := fs.Int("w", int(config.WriteTimeout.Seconds()), "write timeout (in seconds)")

	fs.IntVar(&config.MaxLineBytes, "l", config.MaxLineBytes, "max line length in bytes")
	fs.IntVar(&config.SendQueueLen, "q", config.SendQueueLen, "send queue length per connection")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	archiveInterval := fs.Int("n", int(config.ArchiveInterval.Seconds()), "archive interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.IdleTimeout = time.Duration(*idleTimeout) * time.Second
	config.WriteTimeout = time.Duration(*writeTimeout) * time.Second
	config.ArchiveInterval = time.Duration(*archiveInterval) * time.Second
}
