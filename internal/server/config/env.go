package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors Config for environment parsing. Every field is
// optional; unset variables leave the current value untouched.
type envConfig struct {
	Addr            string         `env:"FASTCHAT_ADDR"`
	DatabaseDSN     string         `env:"FASTCHAT_DATABASE_DSN"`
	Pepper          string         `env:"FASTCHAT_PEPPER"`
	Argon2Time      *uint32        `env:"FASTCHAT_ARGON2_TIME"`
	Argon2Memory    *uint32        `env:"FASTCHAT_ARGON2_MEMORY"`
	Argon2Threads   *uint8         `env:"FASTCHAT_ARGON2_THREADS"`
	IdleTimeout     *time.Duration `env:"FASTCHAT_IDLE_TIMEOUT"`
	WriteTimeout    *time.Duration `env:"FASTCHAT_WRITE_TIMEOUT"`
	MaxLineBytes    *int           `env:"FASTCHAT_MAX_LINE_BYTES"`
	SendQueueLen    *int           `env:"FASTCHAT_SEND_QUEUE_LEN"`
	S3RootUser      string         `env:"FASTCHAT_S3_ROOT_USER"`
	S3RootPassword  string         `env:"FASTCHAT_S3_ROOT_PASSWORD"`
	S3Bucket        string         `env:"FASTCHAT_S3_BUCKET"`
	S3Region        string         `env:"FASTCHAT_S3_REGION"`
	S3BaseEndpoint  string         `env:"FASTCHAT_S3_BASE_ENDPOINT"`
	ArchiveInterval *time.Duration `env:"FASTCHAT_ARCHIVE_INTERVAL"`
}

// parseEnv overlays environment variables onto config. Malformed values
// panic for the same reason a broken JSON file does.
func parseEnv(config *Config) {
	e := envConfig{}
	if err := env.Parse(&e); err != nil {
		panic(err)
	}

	if e.Addr != "" {
		config.Addr = e.Addr
	}
	if e.DatabaseDSN != "" {
		config.DatabaseDSN = e.DatabaseDSN
	}
	if e.Pepper != "" {
		config.Pepper = e.Pepper
	}
	if e.Argon2Time != nil {
		config.Argon2Time = *e.Argon2Time
	}
	if e.Argon2Memory != nil {
		config.Argon2Memory = *e.Argon2Memory
	}
	if e.Argon2Threads != nil {
		config.Argon2Threads = *e.Argon2Threads
	}
	if e.IdleTimeout != nil {
		config.IdleTimeout = *e.IdleTimeout
	}
	if e.WriteTimeout != nil {
		config.WriteTimeout = *e.WriteTimeout
	}
	if e.MaxLineBytes != nil {
		config.MaxLineBytes = *e.MaxLineBytes
	}
	if e.SendQueueLen != nil {
		config.SendQueueLen = *e.SendQueueLen
	}
	if e.S3RootUser != "" {
		config.S3RootUser = e.S3RootUser
	}
	if e.S3RootPassword != "" {
		config.S3RootPassword = e.S3RootPassword
	}
	if e.S3Bucket != "" {
		config.S3Bucket = e.S3Bucket
	}
	if e.S3Region != "" {
		config.S3Region = e.S3Region
	}
	if e.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = e.S3BaseEndpoint
	}
	if e.ArchiveInterval != nil {
		config.ArchiveInterval = *e.ArchiveInterval
	}
}
