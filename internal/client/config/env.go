package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	APIEndpoint       string        `env:"ADDRHUB_API_ENDPOINT"`
	DataDir           string        `env:"ADDRHUB_DATA_DIR"`
	DatabaseFile      string        `env:"ADDRHUB_DATABASE_FILE"`
	ReconcileInterval time.Duration `env:"ADDRHUB_RECONCILE_INTERVAL"`
}

// parseEnv overlays cfg with values from the environment. Unset variables
// leave the current values untouched.
func parseEnv(cfg *Config) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		panic(err)
	}

	if ec.APIEndpoint != "" {
		cfg.APIEndpoint = ec.APIEndpoint
	}
	if ec.DataDir != "" {
		cfg.DataDir = ec.DataDir
	}
	if ec.DatabaseFile != "" {
		cfg.DatabaseFile = ec.DatabaseFile
	}
	if ec.ReconcileInterval != 0 {
		cfg.ReconcileInterval = ec.ReconcileInterval
	}
}
