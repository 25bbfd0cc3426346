package config

import "time"

// Config holds runtime settings for the field-data CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - DatabasePath: path of the on-device sqlite database file.
//   - CacheTTL: how long a fetched record list stays fresh.
//   - OnlineCheckInterval: how often the client probes server reachability.
//
// Units: CacheTTL and OnlineCheckInterval are time.Durations.
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	CacheTTL            time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "fieldsync.db"
	c.CacheTTL = 120 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (including a .env file if present), JSON (if present) and
// command-line flags (if present). Later sources take precedence over
// earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
