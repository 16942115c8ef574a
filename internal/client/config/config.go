package config

import "time"

// Config holds runtime settings for the chat CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - DatabasePath: local SQLite file holding pinned salts.
//   - PageSize: how many messages the history view fetches per page.
//   - RequestTimeout: deadline applied to each server call.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	PageSize           int
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "gophchat.db"
	c.PageSize = 50
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
