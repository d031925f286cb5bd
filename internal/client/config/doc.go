// Package config loads runtime configuration for the pledge board CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the pledge server
//	-t int      statistics response timeout (seconds)
//
// # JSON schema
//
// Durations are timex.Duration values, so either "3s" or nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:8080",
//	  "statistics_timeout": "3s"
//	}
//
// Keys missing from the file keep their previous value.
package config
