package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded before the environment is read. Variables already set
// in the process environment win over the file.
var envFile = ".env"

// parseEnv overlays Config with environment variables.
//
// Recognised variables:
//
//	SECRET_KEY, TOKEN_EXPIRY_HOURS
//	DATABASE_DSN, or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD
//	SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, FROM_EMAIL
//	LOG_BACKEND
//
// Malformed numeric values panic, mirroring the file and flag parsers.
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	setString(&config.SecretKey, "SECRET_KEY")
	if v, ok := os.LookupEnv("TOKEN_EXPIRY_HOURS"); ok {
		hours := mustAtoi("TOKEN_EXPIRY_HOURS", v)
		config.TokenValidityDuration = time.Duration(hours) * time.Hour
	}

	setString(&config.DatabaseDSN, "DATABASE_DSN")
	if host, ok := os.LookupEnv("DB_HOST"); ok {
		config.DatabaseDSN = dsnFromParts(host)
	}

	setString(&config.SMTPHost, "SMTP_HOST")
	if v, ok := os.LookupEnv("SMTP_PORT"); ok {
		config.SMTPPort = mustAtoi("SMTP_PORT", v)
	}
	setString(&config.SMTPUser, "SMTP_USER")
	setString(&config.SMTPPassword, "SMTP_PASSWORD")
	setString(&config.FromEmail, "FROM_EMAIL")

	setString(&config.LogBackend, "LOG_BACKEND")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func mustAtoi(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	return n
}

func dsnFromParts(host string) string {
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:     host + ":" + port,
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
