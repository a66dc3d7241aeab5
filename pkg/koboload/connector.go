package koboload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector is a unified interface for establishing database connections.
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// Executor runs a single statement. *pgxpool.Pool, *pgx.Conn and pgx.Tx
// all satisfy it.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DBConnection is an Executor that can open a transaction. Calling Begin on
// a pgx.Tx opens a savepoint, so a transaction is itself a DBConnection.
type DBConnection interface {
	Executor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Fetcher retrieves the raw export from the remote form service.
type Fetcher interface {
	Fetch(ctx context.Context, url, username, password string) (*FetchResult, error)
}

// Compile-time checks that the pgx types used at runtime fit the interfaces.
var (
	_ DBConnection = (*pgxpool.Pool)(nil)
	_ DBConnection = (pgx.Tx)(nil)
)
