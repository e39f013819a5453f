package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/ledgerd/internal/flagx"
	"github.com/dmitrijs2005/ledgerd/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	CallTimeout        timex.Duration `json:"call_timeout"`
	AccessToken        string         `json:"access_token"`
}

// parseJson overlays Config with values loaded from the file given with -c
// or -config. Only non-empty values are copied. Read or unmarshal errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.CallTimeout.Duration > 0 {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
}
