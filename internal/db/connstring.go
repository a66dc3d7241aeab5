// Package db opens the PostgreSQL session used by the load.
package db

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/vvka-141/koboload/pkg/koboload"
)

// BuildConnectionString renders config as a postgresql:// URI.
// When SSLMode is empty the PGSSLMODE environment variable is honored,
// otherwise pgx's default (prefer) applies.
func BuildConnectionString(config *koboload.ConnectionConfig) string {
	u := &url.URL{
		Scheme: "postgresql",
		Host:   fmt.Sprintf("%s:%d", config.Host, config.Port),
		Path:   "/" + config.Database,
	}

	if config.Username != "" {
		if config.Password != "" {
			u.User = url.UserPassword(config.Username, config.Password)
		} else {
			u.User = url.User(config.Username)
		}
	}

	query := url.Values{}
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = os.Getenv("PGSSLMODE")
	}
	if sslMode != "" {
		query.Set("sslmode", sslMode)
	}
	if config.AppName != "" {
		query.Set("application_name", config.AppName)
	}
	if config.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(config.ConnectTimeout.Seconds())))
	}

	u.RawQuery = query.Encode()
	return u.String()
}

// RedactedConnectionString is BuildConnectionString with the password masked.
func RedactedConnectionString(config *koboload.ConnectionConfig) string {
	c := *config
	if c.Password != "" {
		c.Password = "xxxxx"
	}
	return BuildConnectionString(&c)
}
