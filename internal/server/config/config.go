// Package config handles configuration for the server component,
// including defaults, JSON overlay, command-line flags and the positional
// port argument.
package config

import "time"

// Config holds runtime settings for the pledge server.
//
// Fields:
//   - EndpointAddr: TCP bind address for the client protocol.
//   - DataDir: directory holding the flat files or the bbolt file.
//   - Storage: "file" or "bolt".
//   - MaxClients: soft connection limit; exceeding it is only logged.
//   - MaxLoginAttempts: failed logins before an account is locked, 0 disables locking.
//   - SessionTimeout: kept for compatibility, sessions currently live as long as the connection.
//   - HealthAddr / MetricsAddr: optional gRPC health and Prometheus listeners, empty disables.
//   - OpenDataURL / OpenDataKey / OpenDataTimeout: open-data API used by refresh requests.
//   - Limits: per-collection record caps, zero means unlimited.
type Config struct {
	EndpointAddr     string
	DataDir          string
	Storage          string
	MaxClients       int
	MaxLoginAttempts int
	SessionTimeout   time.Duration
	HealthAddr       string
	MetricsAddr      string
	OpenDataURL      string
	OpenDataKey      string
	OpenDataTimeout  time.Duration
	LogLevel         string
	Limits           Limits
}

// Limits caps the number of records kept per collection. A write that
// would exceed a cap is refused with a storage exhausted error.
type Limits struct {
	Elections   int
	Candidates  int
	Pledges     int
	Evaluations int
	Users       int
}

const (
	StorageFile = "file"
	StorageBolt = "bolt"
)

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DataDir = "data"
	c.Storage = StorageFile
	c.MaxClients = 10
	c.MaxLoginAttempts = 5
	c.SessionTimeout = time.Hour
	c.HealthAddr = ""
	c.MetricsAddr = ""
	c.OpenDataURL = "http://apis.data.go.kr/9760000"
	c.OpenDataKey = ""
	c.OpenDataTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.Limits = Limits{}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, then command-line flags and finally the
// positional port argument.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parsePort(cfg)
	return cfg
}
