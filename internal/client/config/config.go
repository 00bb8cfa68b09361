package config

import "time"

// Config holds runtime settings for the addrhub CLI.
//
// Fields:
//   - APIEndpoint: base URL of the account service API.
//   - DataDir: directory holding the secure store (machine key, archives).
//   - DatabaseFile: path of the local content cache database.
//   - ReconcileInterval: how often pending offline writes are retried.
type Config struct {
	APIEndpoint       string
	DataDir           string
	DatabaseFile      string
	ReconcileInterval time.Duration
}

// DefaultReconcileInterval is used when no reconcile interval is
// configured, or when the configured value is not positive.
const DefaultReconcileInterval = 30 * time.Second

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIEndpoint = "https://api.addrhub.example.com"
	c.DataDir = ".addrhub"
	c.DatabaseFile = "addrhub.db"
	c.ReconcileInterval = DefaultReconcileInterval
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), environment variables, and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseEnv(cfg)
	parseFlags(cfg)

	// A zero or negative interval would break the reconcile ticker.
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultReconcileInterval
	}
	return cfg
}
