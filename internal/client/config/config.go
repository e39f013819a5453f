package config

import (
	"os"
	"time"
)

// Config holds runtime settings for ledgerctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the ledgerd gRPC endpoint.
//   - CallTimeout: deadline applied to each tool call.
//   - AccessToken: bearer token sent as access_token metadata, if set.
type Config struct {
	ServerEndpointAddr string
	CallTimeout        time.Duration
	AccessToken        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.CallTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the LEDGER_TOKEN variable and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if v, ok := os.LookupEnv("LEDGER_TOKEN"); ok {
		cfg.AccessToken = v
	}
	parseFlags(cfg)
	return cfg
}
