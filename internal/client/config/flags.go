package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the pledge server (default from Config)
//	-t int      statistics timeout in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the pledge server")
	statsTimeout := fs.Int("t", int(cfg.StatisticsTimeout.Seconds()), "statistics timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.StatisticsTimeout = time.Duration(*statsTimeout) * time.Second
}
