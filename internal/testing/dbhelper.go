package testing

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/koboload/internal/db"
	"github.com/vvka-141/koboload/internal/fetch"
	"github.com/vvka-141/koboload/internal/logging"
	"github.com/vvka-141/koboload/internal/services"
	"github.com/vvka-141/koboload/internal/testinfra"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// TestConnEnvVar names an existing server to test against instead of a container.
const TestConnEnvVar = "KOBOLOAD_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		ctx := context.Background()
		server, err := testinfra.StartServer(ctx)
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = server.DSN
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: KOBOLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnvVar); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnvVar, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
// Returns the test connection string if available, otherwise skips the test.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// ConnectionConfig converts connString into the parameters the loader
// receives from PG_* variables, pointed at dbName.
func ConnectionConfig(t *testing.T, connString, dbName string) koboload.ConnectionConfig {
	t.Helper()

	cfg, err := pgconn.ParseConfig(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	sslMode := ""
	if cfg.TLSConfig == nil {
		sslMode = "disable"
	}

	return koboload.ConnectionConfig{
		Host:     cfg.Host,
		Port:     int(cfg.Port),
		Database: dbName,
		Username: cfg.User,
		Password: cfg.Password,
		SSLMode:  sslMode,
		AppName:  koboload.ApplicationName + "/test",
	}
}

// NewTestPipeline creates a Pipeline wired like the CLI, with a silent logger
// and the preview discarded.
func NewTestPipeline(t *testing.T) *services.Pipeline {
	t.Helper()

	logger := logging.NewNullLogger()
	factory := func(cfg *koboload.ConnectionConfig) (koboload.Connector, error) {
		return db.NewConnector(cfg, logger), nil
	}
	return services.NewPipeline(fetch.New(), factory, logger, io.Discard)
}

// NewRunConfig returns a RunConfig for sourceURL loading into dbName.
func NewRunConfig(t *testing.T, connString, dbName, sourceURL string) koboload.RunConfig {
	t.Helper()

	return koboload.RunConfig{
		SourceURL:      sourceURL,
		SourceUsername: ExportUsername,
		SourcePassword: ExportPassword,
		Connection:     ConnectionConfig(t, connString, dbName),
		Namespace:      koboload.TargetNamespace,
		Table:          koboload.TargetTable,
		Mode:           koboload.LoadModeAtomic,
		RunID:          "test",
	}
}

// CreateTestDB creates a test database with the given name and registers
// its removal with t.Cleanup.
func CreateTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	defer pool.Close()

	ident := pgx.Identifier{dbName}.Sanitize()
	if _, err := pool.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
		t.Fatalf("Failed to drop stale test database %s: %v", dbName, err)
	}
	if _, err := pool.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}
	t.Logf("✓ Created test database %s", dbName)

	t.Cleanup(func() {
		CleanupTestDB(t, connString, dbName)
	})
}

// CleanupTestDB drops the test database.
// Safe to call multiple times (uses DROP DATABASE IF EXISTS).
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	dropQuery := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{dbName}.Sanitize())
	if _, err := pool.Exec(ctx, dropQuery); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	} else {
		t.Logf("✓ Cleaned up database %s", dbName)
	}
}

// GetTestPool creates a connection pool to the specified database for testing.
// The pool is automatically closed when the test completes.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	config.ConnConfig.Database = dbName

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

// TableExists reports whether namespace.table exists in the pool's database.
func TableExists(t *testing.T, pool *pgxpool.Pool, namespace, table string) bool {
	t.Helper()

	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)`,
		namespace, table).Scan(&exists)
	if err != nil {
		t.Fatalf("Failed to check table %s.%s: %v", namespace, table, err)
	}
	return exists
}

// CountRows returns the row count of namespace.table.
func CountRows(t *testing.T, pool *pgxpool.Pool, namespace, table string) int {
	t.Helper()

	var n int
	query := "SELECT count(*) FROM " + pgx.Identifier{namespace, table}.Sanitize()
	if err := pool.QueryRow(context.Background(), query).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
