package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vvka-141/koboload/internal/checksum"
	"github.com/vvka-141/koboload/internal/db"
	"github.com/vvka-141/koboload/internal/loader"
	"github.com/vvka-141/koboload/internal/parser"
	"github.com/vvka-141/koboload/internal/schema"
	"github.com/vvka-141/koboload/internal/ui"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// ConnectorFactory builds a Connector for the destination database.
type ConnectorFactory func(*koboload.ConnectionConfig) (koboload.Connector, error)

// Pipeline runs one fetch, parse and load cycle.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type Pipeline struct {
	fetcher          koboload.Fetcher
	connectorFactory ConnectorFactory
	checksummer      checksum.Calculator
	logger           koboload.Logger
	out              io.Writer
}

// NewPipeline creates a Pipeline with all dependencies injected.
// Panics on nil dependencies; those are wiring mistakes, not runtime conditions.
// out receives the record preview.
func NewPipeline(
	fetcher koboload.Fetcher,
	connectorFactory ConnectorFactory,
	logger koboload.Logger,
	out io.Writer,
) *Pipeline {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if out == nil {
		panic("out cannot be nil")
	}

	return &Pipeline{
		fetcher:          fetcher,
		connectorFactory: connectorFactory,
		checksummer:      checksum.New(),
		logger:           logger,
		out:              out,
	}
}

// Run fetches the export, parses it and replaces the destination table with
// its records. The database is contacted only after fetch and parse succeed.
//
// The returned summary is non-nil whenever the configuration was valid, so
// callers can report partial progress alongside the error.
func (p *Pipeline) Run(ctx context.Context, cfg koboload.RunConfig) (*koboload.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	start := time.Now()
	summary := &koboload.RunSummary{
		RunID:  cfg.RunID,
		Target: schema.QualifiedName(cfg.Namespace, cfg.Table),
		DryRun: cfg.DryRun,
	}
	defer func() { summary.Duration = time.Since(start) }()

	p.logger.Verbose("Run %s: %s -> %s (mode %s)", cfg.RunID, cfg.SourceURL, summary.Target, cfg.Mode)

	parsed, err := p.fetchAndParse(ctx, cfg, summary)
	if err != nil {
		return summary, err
	}

	p.report(parsed, cfg.Preview)

	if cfg.DryRun {
		p.logger.Info("Dry run: %d records parsed, database not contacted", len(parsed.Records))
		return summary, nil
	}

	if err := p.load(ctx, cfg, parsed.Records, summary); err != nil {
		return summary, err
	}

	p.logger.Info("✓ Loaded %d rows into %s", summary.Load.Inserted, summary.Target)
	return summary, nil
}

func (p *Pipeline) fetchAndParse(ctx context.Context, cfg koboload.RunConfig, summary *koboload.RunSummary) (*koboload.ParseResult, error) {
	p.logger.Info("Fetching export...")

	fetched, err := p.fetcher.Fetch(ctx, cfg.SourceURL, cfg.SourceUsername, cfg.SourcePassword)
	if fetched != nil {
		summary.StatusCode = fetched.StatusCode
		summary.BytesRead = len(fetched.Body)
	}
	if err != nil {
		if fetched != nil {
			p.logger.Error("Failed to retrieve data. Status code: %d", fetched.StatusCode)
		}
		if !errors.Is(err, koboload.ErrFetchFailed) && !isContextError(err) {
			err = fmt.Errorf("%w: %w", koboload.ErrFetchFailed, err)
		}
		return nil, err
	}
	summary.Checksum = p.checksummer.CalculateNormalized(fetched.Body)
	p.logger.Info("Fetched %d bytes (status %d)", len(fetched.Body), fetched.StatusCode)
	p.logger.Verbose("Content type %s, sha256 %s", fetched.ContentType, summary.Checksum)

	parsed, err := parser.ParseBytes(fetched.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	summary.Parse = parsed

	return parsed, nil
}

// report prints the preview and warns about anything the load will not see.
func (p *Pipeline) report(parsed *koboload.ParseResult, preview int) {
	p.logger.Info("Parsed %d records with %d columns", len(parsed.Records), len(parsed.Header))

	if parsed.Skipped > 0 {
		p.logger.Info("Warning: skipped %d malformed lines (field count differs from header)", parsed.Skipped)
		p.logger.Verbose("Skipped lines: %v", parsed.SkippedLines)
	}

	if missing := schema.MissingHeaders(parsed.Header); len(missing) > 0 {
		p.logger.Info("Warning: %d expected headers are not in the export and will load as NULL: %s",
			len(missing), strings.Join(missing, ", "))
	}

	ui.RenderPreview(p.out, parsed.Header, parsed.Records, preview)
}

// load connects, provisions and inserts. The pool is closed on every path.
func (p *Pipeline) load(ctx context.Context, cfg koboload.RunConfig, records []koboload.Record, summary *koboload.RunSummary) error {
	p.logger.Info("Connecting to %s", db.RedactedConnectionString(&cfg.Connection))

	connector, err := p.connectorFactory(&cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		if !errors.Is(err, koboload.ErrConnectionFailed) && !errors.Is(err, koboload.ErrInvalidConfig) {
			err = fmt.Errorf("%w: %w", koboload.ErrConnectionFailed, err)
		}
		return err
	}
	p.logger.Info("Connected to database %s", cfg.Connection.Database)
	defer func() {
		pool.Close()
		p.logger.Verbose("Database connection closed")
	}()

	ld := loader.New(cfg.Mode, cfg.Namespace, cfg.Table, p.logger)
	p.logger.Info("Inserting %d records into %s", len(records), ld.Target())

	result, err := ld.Load(ctx, pool, records)
	summary.Load = result
	if err != nil {
		p.logFailures(result)
		return err
	}
	return nil
}

func (p *Pipeline) logFailures(result *koboload.LoadResult) {
	if result == nil {
		return
	}
	for i, f := range result.Failures {
		if i == koboload.MaxFailuresShown {
			p.logger.Error("... %d more failed rows", len(result.Failures)-i)
			return
		}
		p.logger.Error("Error inserting record %d (%s): %v", f.Index+1, f.Reason, f.Err)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
