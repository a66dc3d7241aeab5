// Package config reads the run's credentials and connection parameters
// from the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// Environment variable names.
const (
	EnvKoboUsername = "KOBO_USERNAME"
	EnvKoboPassword = "KOBO_PASSWORD"
	EnvKoboURL      = "KOBO_URL"
	EnvPGHost       = "PG_HOST"
	EnvPGPort       = "PG_PORT"
	EnvPGUser       = "PG_USER"
	EnvPGPassword   = "PG_PASSWORD"
	EnvPGDatabase   = "PG_DATABASE"
)

// DefaultPGPort is used when PG_PORT is unset or empty.
const DefaultPGPort = 5432

// DotEnvFile is loaded from the working directory when present.
// Variables already set in the environment take precedence over it.
const DotEnvFile = ".env"

const redacted = "********"

// Config holds everything the environment supplies for one run.
type Config struct {
	KoboUsername string
	KoboPassword string
	KoboURL      string

	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGDatabase string
}

// Load reads .env (if any) into the environment, then builds a Config.
// Values are not checked for presence; only PG_PORT must parse as an integer.
func Load() (*Config, error) {
	if _, err := os.Stat(DotEnvFile); err == nil {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", DotEnvFile, err)
		}
	}
	return FromEnvironment()
}

// FromEnvironment builds a Config from the current process environment only.
func FromEnvironment() (*Config, error) {
	port, err := parsePort(os.Getenv(EnvPGPort))
	if err != nil {
		return nil, err
	}

	return &Config{
		KoboUsername: os.Getenv(EnvKoboUsername),
		KoboPassword: os.Getenv(EnvKoboPassword),
		KoboURL:      os.Getenv(EnvKoboURL),
		PGHost:       os.Getenv(EnvPGHost),
		PGPort:       port,
		PGUser:       os.Getenv(EnvPGUser),
		PGPassword:   os.Getenv(EnvPGPassword),
		PGDatabase:   os.Getenv(EnvPGDatabase),
	}, nil
}

func parsePort(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPGPort, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a port number: %w", EnvPGPort, raw, koboload.ErrInvalidConfig)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%s=%d out of range: %w", EnvPGPort, port, koboload.ErrInvalidConfig)
	}
	return port, nil
}

// ConnectionConfig converts the PG_* values into connection parameters.
// runID is appended to application_name so the session can be found in
// pg_stat_activity.
func (c *Config) ConnectionConfig(runID string) koboload.ConnectionConfig {
	appName := koboload.ApplicationName
	if runID != "" {
		appName += "/" + runID
	}
	return koboload.ConnectionConfig{
		Host:     c.PGHost,
		Port:     c.PGPort,
		Database: c.PGDatabase,
		Username: c.PGUser,
		Password: c.PGPassword,
		AppName:  appName,
	}
}

// Redacted returns a copy with both passwords masked, for logging.
func (c *Config) Redacted() Config {
	out := *c
	if out.KoboPassword != "" {
		out.KoboPassword = redacted
	}
	if out.PGPassword != "" {
		out.PGPassword = redacted
	}
	return out
}
