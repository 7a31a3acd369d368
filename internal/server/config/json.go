package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fastchat/internal/flagx"
	"github.com/dmitrijs2005/fastchat/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into
// the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	Addr            string         `json:"addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	Pepper          string         `json:"pepper"`
	Argon2Time      uint32         `json:"argon2_time"`
	Argon2Memory    uint32         `json:"argon2_memory"`
	Argon2Threads   uint8          `json:"argon2_threads"`
	IdleTimeout     timex.Duration `json:"idle_timeout"`
	WriteTimeout    timex.Duration `json:"write_timeout"`
	MaxLineBytes    int            `json:"max_line_bytes"`
	SendQueueLen    int            `json:"send_queue_len"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	ArchiveInterval timex.Duration `json:"archive_interval"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics: a broken config file should
// stop startup, not be silently ignored.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.Addr = c.Addr
	config.DatabaseDSN = c.DatabaseDSN
	config.Pepper = c.Pepper
	config.Argon2Time = c.Argon2Time
	config.Argon2Memory = c.Argon2Memory
	config.Argon2Threads = c.Argon2Threads
	config.IdleTimeout = c.IdleTimeout.Duration
	config.WriteTimeout = c.WriteTimeout.Duration
	config.MaxLineBytes = c.MaxLineBytes
	config.SendQueueLen = c.SendQueueLen
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.ArchiveInterval = c.ArchiveInterval.Duration
}
