package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/flagx"
)

var valueFlags = []string{"-a", "-d", "-m", "-l", "-s", "-g", "-p", "-u", "-k", "-t", "-c", "-config"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":8080")
//	-d string   data directory
//	-m int      max clients (soft limit)
//	-l int      max failed login attempts before lock, 0 disables
//	-s string   storage backend: file or bolt
//	-g string   gRPC health bind address, empty disables
//	-p string   Prometheus metrics bind address, empty disables
//	-u string   open-data API base URL
//	-k string   open-data API key
//	-t int      open-data request timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so the JSON config flags and the positional port do not
// collide with it.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-l", "-s", "-g", "-p", "-u", "-k", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.IntVar(&config.MaxClients, "m", config.MaxClients, "max clients (logged only)")
	fs.IntVar(&config.MaxLoginAttempts, "l", config.MaxLoginAttempts, "max failed login attempts, 0 disables locking")
	fs.StringVar(&config.Storage, "s", config.Storage, "storage backend (file|bolt)")
	fs.StringVar(&config.HealthAddr, "g", config.HealthAddr, "gRPC health address")
	fs.StringVar(&config.MetricsAddr, "p", config.MetricsAddr, "metrics address")
	fs.StringVar(&config.OpenDataURL, "u", config.OpenDataURL, "open-data API base URL")
	fs.StringVar(&config.OpenDataKey, "k", config.OpenDataKey, "open-data API key")

	openDataTimeout := fs.Int("t", int(config.OpenDataTimeout.Seconds()), "open-data timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OpenDataTimeout = time.Duration(*openDataTimeout) * time.Second
}

// parsePort applies the optional positional port argument ("server 9000"),
// keeping the host part of EndpointAddr.
func parsePort(config *Config) {
	positional := flagx.PositionalArgs(os.Args[1:], valueFlags)
	if len(positional) == 0 {
		return
	}

	port, err := strconv.Atoi(positional[0])
	if err != nil || port < 1 || port > 65535 {
		panic(fmt.Errorf("invalid port %q: want 1-65535", positional[0]))
	}

	host, _, err := net.SplitHostPort(config.EndpointAddr)
	if err != nil {
		host = ""
	}
	config.EndpointAddr = net.JoinHostPort(host, strconv.Itoa(port))
}
