package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ledgerd/internal/flagx"
	"github.com/dmitrijs2005/ledgerd/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// both "24h" strings and integer nanoseconds. Zero values leave the
// corresponding Config field untouched.
type FileConfig struct {
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP      string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn" yaml:"database_dsn"`
	MaxDBConns            int            `json:"max_db_conns" yaml:"max_db_conns"`
	SecretKey             string         `json:"secret_key" yaml:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration" yaml:"token_validity_duration"`
	SMTPHost              string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort              int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser              string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword          string         `json:"smtp_password" yaml:"smtp_password"`
	FromEmail             string         `json:"from_email" yaml:"from_email"`
	S3RootUser            string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region              string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogBackend            string         `json:"log_backend" yaml:"log_backend"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. A missing
// flag is a no-op; an unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.MaxDBConns, c.MaxDBConns)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.TokenValidityDuration, c.TokenValidityDuration.Duration)
	overlay(&config.SMTPHost, c.SMTPHost)
	overlay(&config.SMTPPort, c.SMTPPort)
	overlay(&config.SMTPUser, c.SMTPUser)
	overlay(&config.SMTPPassword, c.SMTPPassword)
	overlay(&config.FromEmail, c.FromEmail)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.LogBackend, c.LogBackend)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
