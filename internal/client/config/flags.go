package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/flagx"
)

// Flags is the list of flags consumed by the config package. Everything else
// on the command line belongs to the tool invocation.
var Flags = []string{"-a", "-t", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   address and port of the backend server (default from Config)
//	-t int      per-call timeout in seconds (default from Config)
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.CallTimeout.Seconds()), "call timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.CallTimeout = time.Duration(*timeout) * time.Second
}
