// Package loader writes parsed records into the destination table.
//
// Two modes are supported:
//
//   - atomic: schema provisioning and every insert share one transaction.
//     Each insert runs under its own savepoint so that all failing rows are
//     reported, but the transaction is committed only when none failed.
//     On failure the previous table contents survive untouched.
//   - best-effort: every statement commits on its own, as with an
//     auto-commit session. Failing rows are recorded and skipped.
//
// In both modes a failure that would repeat for every remaining row (lost
// connection, dropped table, cancelled context) stops the loop.
package loader

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/koboload/internal/schema"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// progressInterval is how often (in rows) progress is logged in verbose mode.
const progressInterval = 500

// Loader inserts records in the fixed column order.
// NOT safe for concurrent Load() calls.
type Loader struct {
	mode        koboload.LoadMode
	provisioner *schema.Provisioner
	insertSQL   string
	logger      koboload.Logger
}

// New creates a Loader for namespace.table.
func New(mode koboload.LoadMode, namespace, table string, logger koboload.Logger) *Loader {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Loader{
		mode:        mode,
		provisioner: schema.NewProvisioner(namespace, table, logger),
		insertSQL:   schema.InsertSQL(namespace, table),
		logger:      logger,
	}
}

// Target returns the quoted destination name.
func (l *Loader) Target() string {
	return l.provisioner.Target()
}

// Args maps a record onto the insert's positional parameters. A column whose
// source header is missing from the record, or empty, becomes NULL.
func Args(rec koboload.Record) []any {
	cols := schema.Columns()
	args := make([]any, len(cols))
	for i, c := range cols {
		if v, ok := rec.Lookup(c.SourceHeader); ok {
			args[i] = v
		}
	}
	return args
}

// Load provisions the table and inserts records in order.
// The returned LoadResult is non-nil whenever provisioning was attempted,
// including when err is non-nil.
func (l *Loader) Load(ctx context.Context, conn koboload.DBConnection, records []koboload.Record) (*koboload.LoadResult, error) {
	switch l.mode {
	case koboload.LoadModeAtomic:
		return l.loadAtomic(ctx, conn, records)
	case koboload.LoadModeBestEffort:
		return l.loadBestEffort(ctx, conn, records)
	default:
		return nil, fmt.Errorf("load mode %v is not supported: %w", l.mode, koboload.ErrInvalidConfig)
	}
}

func (l *Loader) loadAtomic(ctx context.Context, conn koboload.DBConnection, records []koboload.Record) (*koboload.LoadResult, error) {
	result := &koboload.LoadResult{Mode: koboload.LoadModeAtomic}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w: %w", err, koboload.ErrLoadFailed)
	}
	defer func() {
		if !result.Committed {
			// Rollback after a cancelled ctx must still reach the server.
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := l.provisioner.Provision(ctx, tx); err != nil {
		return result, err
	}

	stopErr := l.insertAll(ctx, records, result, func(ctx context.Context, args []any) error {
		return insertWithSavepoint(ctx, tx, l.insertSQL, args)
	})
	if stopErr != nil {
		return result, fmt.Errorf("load stopped after %d of %d rows, nothing committed: %w: %w",
			result.Attempted, len(records), stopErr, koboload.ErrLoadFailed)
	}

	if n := result.Failed(); n > 0 {
		return result, fmt.Errorf("%d of %d rows failed, nothing committed: %w", n, len(records), koboload.ErrLoadFailed)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit load: %w: %w", err, koboload.ErrLoadFailed)
	}
	result.Committed = true

	return result, nil
}

func (l *Loader) loadBestEffort(ctx context.Context, conn koboload.DBConnection, records []koboload.Record) (*koboload.LoadResult, error) {
	result := &koboload.LoadResult{Mode: koboload.LoadModeBestEffort}

	if err := l.provisioner.Provision(ctx, conn); err != nil {
		return result, err
	}
	// Every statement below commits on its own.
	result.Committed = true

	stopErr := l.insertAll(ctx, records, result, func(ctx context.Context, args []any) error {
		_, err := conn.Exec(ctx, l.insertSQL, args...)
		return err
	})
	if stopErr != nil {
		return result, fmt.Errorf("load stopped after %d of %d rows, %d committed: %w: %w",
			result.Attempted, len(records), result.Inserted, stopErr, koboload.ErrPartialLoad)
	}

	if n := result.Failed(); n > 0 {
		return result, fmt.Errorf("%d of %d rows failed, %d committed: %w", n, len(records), result.Inserted, koboload.ErrPartialLoad)
	}

	return result, nil
}

// insertAll runs insert for each record, recording failures in result.
// It returns a non-nil error only when the loop had to stop early.
func (l *Loader) insertAll(
	ctx context.Context,
	records []koboload.Record,
	result *koboload.LoadResult,
	insert func(ctx context.Context, args []any) error,
) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		result.Attempted++
		err := insert(ctx, Args(rec))
		if err == nil {
			result.Inserted++
			if result.Inserted%progressInterval == 0 {
				l.logger.Verbose("Inserted %d/%d rows", result.Inserted, len(records))
			}
			continue
		}

		c := Classify(err)
		result.Failures = append(result.Failures, koboload.RowOutcome{Index: i, Reason: c.Reason, Err: err})
		l.logger.Verbose("Row %d failed (%s): %v", i+1, c.Reason, err)

		if c.Fatal {
			return err
		}
	}
	return nil
}

// insertWithSavepoint runs one insert so that its failure does not abort
// the enclosing transaction.
func insertWithSavepoint(ctx context.Context, tx pgx.Tx, sql string, args []any) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := sp.Exec(ctx, sql, args...); err != nil {
		_ = sp.Rollback(context.WithoutCancel(ctx))
		return err
	}
	return sp.Commit(ctx)
}
