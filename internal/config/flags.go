package config

import (
	"flag"
	"os"

	"fieldagent/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the tracking backend (default from Config)
//	-d string   data directory (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the tracking backend")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
