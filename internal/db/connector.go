package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is one: the load is a single sequential session.
	DefaultMaxConns = 1

	// DefaultMinConns keeps the session open between statements.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the session alive across a slow fetch-to-load gap.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger koboload.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		// DROP TABLE IF EXISTS and CREATE SCHEMA IF NOT EXISTS report skips as notices
		logger.Verbose("server notice: %s", notice.Message)
	}
}

// StandardConnector implements the Connector interface for
// username/password authentication. It makes exactly one attempt.
type StandardConnector struct {
	config *koboload.ConnectionConfig
	logger koboload.Logger
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *koboload.ConnectionConfig, logger koboload.Logger) *StandardConnector {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &StandardConnector{config: config, logger: logger}
}

// NewConnector is the factory used by the pipeline.
func NewConnector(config *koboload.ConnectionConfig, logger koboload.Logger) koboload.Connector {
	return NewStandardConnector(config, logger)
}

// Connect opens the pool and verifies it with a ping.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := BuildConnectionString(c.config)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", err, koboload.ErrInvalidConfig)
	}

	configurePool(poolConfig, c.logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
	}

	return pool, nil
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// The result always chains koboload.ErrConnectionFailed and the original error.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return connectionError(err, `connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong PG_HOST or PG_PORT
  - Firewall blocking the connection`, addr, host, port)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return connectionError(err, `cannot resolve host "%s"

Possible causes:
  - PG_HOST is misspelled
  - DNS is not configured or reachable
  - Network connection issue`, host)

	case strings.Contains(errStr, "password authentication failed"):
		return connectionError(err, `password authentication failed for database "%s"

Possible causes:
  - Wrong PG_PASSWORD
  - Wrong PG_USER
  - User does not have access to the database`, database)

	case strings.Contains(errStr, "does not exist"):
		return connectionError(err, `database "%s" does not exist

To create it:
  createdb %s

Then check PG_DATABASE.`, database, database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return connectionError(err, `connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return connectionError(err, `SSL/TLS connection error

Possible causes:
  - Server requires SSL (set PGSSLMODE=require)
  - Certificate verification failed`)

	case strings.Contains(errStr, "too many connections"):
		return connectionError(err, `too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale sessions from earlier runs (application_name starts with %s)`, database, koboload.ApplicationName)

	default:
		return fmt.Errorf("failed to connect to database: %w: %w", err, koboload.ErrConnectionFailed)
	}
}

func connectionError(err error, format string, args ...any) error {
	guidance := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s\n\nOriginal error: %w", koboload.ErrConnectionFailed, guidance, err)
}
