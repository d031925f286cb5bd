package config

import "time"

// Config holds runtime settings for the pledge board CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the pledge server.
//   - StatisticsTimeout: upper bound on the wait for a statistics response.
type Config struct {
	ServerEndpointAddr string
	StatisticsTimeout  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:8080"
	c.StatisticsTimeout = 3 * time.Second
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
