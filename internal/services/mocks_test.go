package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/koboload/pkg/koboload"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

type mockFetcher struct {
	result *koboload.FetchResult
	err    error
	calls  int

	gotURL, gotUser, gotPass string
}

func (m *mockFetcher) Fetch(_ context.Context, url, username, password string) (*koboload.FetchResult, error) {
	m.calls++
	m.gotURL, m.gotUser, m.gotPass = url, username, password
	return m.result, m.err
}

// countingFactory records how often a connector was requested.
type countingFactory struct {
	connector koboload.Connector
	err       error
	calls     int
	gotConfig *koboload.ConnectionConfig
}

func (f *countingFactory) build(cfg *koboload.ConnectionConfig) (koboload.Connector, error) {
	f.calls++
	f.gotConfig = cfg
	return f.connector, f.err
}

type mockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (m *mockLogger) Verbose(format string, args ...interface{}) { m.add("VERBOSE", format, args) }
func (m *mockLogger) Info(format string, args ...interface{})    { m.add("INFO", format, args) }
func (m *mockLogger) Error(format string, args ...interface{})   { m.add("ERROR", format, args) }

func (m *mockLogger) add(level, format string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, level+" "+fmt.Sprintf(format, args...))
}

func (m *mockLogger) output() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}
