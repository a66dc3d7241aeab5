// Package testinfra boots the disposable PostgreSQL server that the load
// tests create their per-test databases on.
package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Server settings. AdminDB only hosts CREATE DATABASE and DROP DATABASE;
// loads run against the databases made from it.
const (
	Image         = "postgres:17-alpine"
	AdminUser     = "koboload"
	AdminPassword = "koboload"
	AdminDB       = "koboload_admin"

	bootTimeout = 90 * time.Second
)

// Server is a running disposable PostgreSQL instance.
type Server struct {
	container *postgres.PostgresContainer

	// DSN reaches AdminDB as AdminUser over plain TCP.
	DSN string
}

// StartServer runs Image in UTC and returns once it accepts connections.
// Nothing stops the server; the container reaper removes it when the test
// binary exits.
func StartServer(ctx context.Context) (*Server, error) {
	ctr, err := postgres.Run(ctx, Image,
		postgres.WithUsername(AdminUser),
		postgres.WithPassword(AdminPassword),
		postgres.WithDatabase(AdminDB),
		testcontainers.WithEnv(map[string]string{"TZ": "UTC", "PGTZ": "UTC"}),
		testcontainers.WithWaitStrategy(wait.ForAll(
			// The image restarts once after initdb, so the line shows up twice.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(bootTimeout),
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(bootTimeout),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("boot %s: %w", Image, err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable", "application_name=koboload-tests")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("resolve %s address: %w", Image, err)
	}

	return &Server{container: ctr, DSN: dsn}, nil
}
