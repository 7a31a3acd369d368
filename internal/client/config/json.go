package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fastchat/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. After
// parsing, values are copied into the runtime Config.
type JsonConfig struct {
	ServerAddr  string `json:"server_addr"`
	DataDir     string `json:"data_dir"`
	DatabaseDSN string `json:"database_dsn"`
}

// parseJson overlays cfg with values loaded from a JSON file. The file
// path comes from the -c or -config flags; if neither is set, nothing is
// loaded. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerAddr = jc.ServerAddr
	cfg.DataDir = jc.DataDir
	cfg.DatabaseDSN = jc.DatabaseDSN
}
