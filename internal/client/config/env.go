package config

import "github.com/caarlos0/env/v11"

type envConfig struct {
	ServerAddr  string `env:"FASTCHAT_SERVER_ADDR"`
	DataDir     string `env:"FASTCHAT_DATA_DIR"`
	DatabaseDSN string `env:"FASTCHAT_DATABASE_DSN"`
}

// parseEnv overlays environment variables onto cfg. Unset variables
// leave the current value untouched.
func parseEnv(cfg *Config) {
	e := envConfig{}
	if err := env.Parse(&e); err != nil {
		panic(err)
	}

	if e.ServerAddr != "" {
		cfg.ServerAddr = e.ServerAddr
	}
	if e.DataDir != "" {
		cfg.DataDir = e.DataDir
	}
	if e.DatabaseDSN != "" {
		cfg.DatabaseDSN = e.DatabaseDSN
	}
}
