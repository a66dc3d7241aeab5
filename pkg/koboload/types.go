package koboload

import (
	"errors"
	"fmt"
	"time"
)

// Record is one parsed data line, keyed by the exact header text of the export.
type Record map[string]string

// Lookup returns the value for header. The second result is false when the
// header is absent from the record or the field is empty; both load as NULL.
func (r Record) Lookup(header string) (string, bool) {
	v, ok := r[header]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Column describes one destination column and the export header feeding it.
type Column struct {
	// Name is the column name in the destination table (quoted, case preserved)
	Name string

	// SourceHeader is the header text in the export, matched exactly
	SourceHeader string

	// Type is the PostgreSQL type of the column
	Type string
}

// FetchResult is the raw outcome of one retrieval.
type FetchResult struct {
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
}

// ParseResult holds the records of one export and what was dropped on the way.
type ParseResult struct {
	// Header is the field names in source order, unmodified
	Header []string

	// Records are the well-formed data lines in source order
	Records []Record

	// Skipped counts malformed lines that were dropped
	Skipped int

	// SkippedLines are the 1-based source line numbers of the dropped lines
	SkippedLines []int
}

// LoadMode selects how inserts are grouped into transactions.
type LoadMode int

const (
	// LoadModeAtomic commits the table only if every row inserts.
	LoadModeAtomic LoadMode = iota
	// LoadModeBestEffort commits every statement on its own and keeps going past failures.
	LoadModeBestEffort
)

// String returns the flag spelling of the mode.
func (m LoadMode) String() string {
	switch m {
	case LoadModeAtomic:
		return "atomic"
	case LoadModeBestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// IsValid returns true if the LoadMode is a defined value.
func (m LoadMode) IsValid() bool {
	return m == LoadModeAtomic || m == LoadModeBestEffort
}

// ParseLoadMode converts a flag value into a LoadMode.
func ParseLoadMode(s string) (LoadMode, error) {
	switch s {
	case "atomic", "":
		return LoadModeAtomic, nil
	case "best-effort", "besteffort":
		return LoadModeBestEffort, nil
	default:
		return 0, fmt.Errorf("unknown load mode %q (want atomic or best-effort): %w", s, ErrInvalidConfig)
	}
}

// RowOutcome records a row that could not be inserted.
type RowOutcome struct {
	// Index is the 0-based position of the record in ParseResult.Records
	Index int

	// Reason is a short classification such as "data exception"
	Reason string

	// Err is the underlying database error
	Err error
}

// LoadResult summarizes the insert loop.
type LoadResult struct {
	Mode      LoadMode
	Attempted int
	Inserted  int
	Failures  []RowOutcome

	// Committed is true when inserted rows are visible to other sessions
	Committed bool
}

// Failed returns the number of rows that did not insert.
func (r *LoadResult) Failed() int {
	return len(r.Failures)
}

// ConnectionConfig represents resolved connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	AppName        string
	ConnectTimeout time.Duration
}

// RunConfig contains all parameters needed for one load run.
type RunConfig struct {
	// SourceURL is the form export URL
	SourceURL string

	// SourceUsername and SourcePassword are the basic-auth credentials for SourceURL
	SourceUsername string
	SourcePassword string

	// Connection is the destination database
	Connection ConnectionConfig

	// Namespace and Table name the destination
	Namespace string
	Table     string

	// Mode selects the transaction grouping of the load
	Mode LoadMode

	// DryRun stops after parsing; the database is never contacted
	DryRun bool

	// Preview is the number of records printed before loading (0 disables)
	Preview int

	// Timeout bounds the whole run; zero means no limit
	Timeout time.Duration

	// RunID identifies the run in logs and in application_name
	RunID string

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks the RunConfig fields that the run cannot proceed without.
// Credentials are passed through unchecked, as the remote service and the
// database are the authority on them.
func (c *RunConfig) Validate() error {
	var errs []error

	if !c.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("load mode %v is not supported: %w", c.Mode, ErrInvalidConfig))
	}

	if c.Namespace == "" || c.Table == "" {
		errs = append(errs, fmt.Errorf("namespace and table are required: %w", ErrInvalidConfig))
	}

	if c.Preview < 0 {
		errs = append(errs, fmt.Errorf("preview row count cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Connection.Port < 0 || c.Connection.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range: %w", c.Connection.Port, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// RunSummary is what a run reports on completion.
type RunSummary struct {
	RunID      string
	Target     string
	StatusCode int
	BytesRead  int

	// Checksum fingerprints the fetched export; identical exports share it
	Checksum string

	Parse    *ParseResult
	Load     *LoadResult
	DryRun   bool
	Duration time.Duration
}
