package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pledgeboard/internal/flagx"
	"github.com/dmitrijs2005/pledgeboard/internal/timex"
)

// JsonConfig is the DTO read from the JSON config file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted. Values
// are copied into Config after unmarshalling; fields absent from the file
// keep their current value.
type JsonConfig struct {
	EndpointAddr     *string         `json:"endpoint_addr"`
	DataDir          *string         `json:"data_dir"`
	Storage          *string         `json:"storage"`
	MaxClients       *int            `json:"max_clients"`
	MaxLoginAttempts *int            `json:"max_login_attempts"`
	SessionTimeout   *timex.Duration `json:"session_timeout"`
	HealthAddr       *string         `json:"health_addr"`
	MetricsAddr      *string         `json:"metrics_addr"`
	OpenDataURL      *string         `json:"open_data_url"`
	OpenDataKey      *string         `json:"open_data_key"`
	OpenDataTimeout  *timex.Duration `json:"open_data_timeout"`
	LogLevel         *string         `json:"log_level"`
	Limits           *JsonLimits     `json:"limits"`
}

type JsonLimits struct {
	Elections   *int `json:"elections"`
	Candidates  *int `json:"candidates"`
	Pledges     *int `json:"pledges"`
	Evaluations *int `json:"evaluations"`
	Users       *int `json:"users"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag. Without the flag nothing is loaded. If the file cannot
// be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
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

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DataDir, c.DataDir)
	setString(&config.Storage, c.Storage)
	setInt(&config.MaxClients, c.MaxClients)
	setInt(&config.MaxLoginAttempts, c.MaxLoginAttempts)
	if c.SessionTimeout != nil {
		config.SessionTimeout = c.SessionTimeout.Duration
	}
	setString(&config.HealthAddr, c.HealthAddr)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.OpenDataURL, c.OpenDataURL)
	setString(&config.OpenDataKey, c.OpenDataKey)
	if c.OpenDataTimeout != nil {
		config.OpenDataTimeout = c.OpenDataTimeout.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	if l := c.Limits; l != nil {
		setInt(&config.Limits.Elections, l.Elections)
		setInt(&config.Limits.Candidates, l.Candidates)
		setInt(&config.Limits.Pledges, l.Pledges)
		setInt(&config.Limits.Evaluations, l.Evaluations)
		setInt(&config.Limits.Users, l.Users)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
