package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vvka-141/koboload/internal/config"
	"github.com/vvka-141/koboload/internal/db"
	"github.com/vvka-141/koboload/internal/fetch"
	"github.com/vvka-141/koboload/internal/logging"
	"github.com/vvka-141/koboload/internal/services"
	"github.com/vvka-141/koboload/internal/ui"
	"github.com/vvka-141/koboload/pkg/koboload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the export and replace the destination table",
	Long: `Run performs one load:
1. Fetches the export from $KOBO_URL with HTTP basic authentication
2. Parses it as semicolon-separated text, skipping malformed lines
3. Prints a preview of the first records
4. Connects to PostgreSQL using the PG_* variables
5. Drops and recreates "chidinma_1"."customers_feedback" and inserts every record

Load modes:
  atomic       The table is replaced only if every row inserts (default).
               On failure the previous table is left untouched.
  best-effort  Each statement commits on its own. Failing rows are
               reported and skipped.

No confirmation is asked before the table is dropped.

Examples:
  # Load with defaults
  koboload run

  # Check what would be loaded without touching the database
  koboload run --dry-run --preview 20

  # Keep going past bad rows
  koboload run --mode best-effort -v`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

type runFlagValues struct {
	mode        string
	dryRun      bool
	preview     int
	httpTimeout    time.Duration
	connectTimeout time.Duration
	timeout        time.Duration
}

var runFlags runFlagValues

const defaultConnectTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.mode, "mode", koboload.LoadModeAtomic.String(),
		"Load mode: atomic|best-effort")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false,
		"Fetch, parse and preview only; the database is not contacted")
	runCmd.Flags().IntVar(&runFlags.preview, "preview", koboload.DefaultPreviewRows,
		"Number of records to print before loading (0 disables the preview)")
	runCmd.Flags().DurationVar(&runFlags.httpTimeout, "http-timeout", 0,
		"Timeout for the export request (default none)\n"+
			"Examples: 30s, 2m")
	runCmd.Flags().DurationVar(&runFlags.connectTimeout, "connect-timeout", defaultConnectTimeout,
		"Timeout for establishing the database connection, whole seconds (0 waits indefinitely)")
	runCmd.Flags().DurationVar(&runFlags.timeout, "timeout", 0,
		"Timeout for the whole run (default none)\n"+
			"Examples: 5m, 1h")
}

// buildRunConfig builds a RunConfig from the environment and CLI flags.
func buildRunConfig(verbose bool) (koboload.RunConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return koboload.RunConfig{}, err
	}

	mode, err := koboload.ParseLoadMode(runFlags.mode)
	if err != nil {
		return koboload.RunConfig{}, err
	}

	runID := uuid.NewString()
	conn := cfg.ConnectionConfig(runID)
	conn.ConnectTimeout = runFlags.connectTimeout

	if verbose {
		r := cfg.Redacted()
		fmt.Fprintf(os.Stderr, "[VERBOSE] Run %s configuration:\n", runID)
		fmt.Fprintf(os.Stderr, "  Export URL: %s\n", r.KoboURL)
		fmt.Fprintf(os.Stderr, "  Export user: %s\n", r.KoboUsername)
		fmt.Fprintf(os.Stderr, "  Host: %s\n", r.PGHost)
		fmt.Fprintf(os.Stderr, "  Port: %d\n", r.PGPort)
		fmt.Fprintf(os.Stderr, "  User: %s\n", r.PGUser)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", r.PGDatabase)
		fmt.Fprintf(os.Stderr, "  Mode: %s\n", mode)
	}

	return koboload.RunConfig{
		SourceURL:      cfg.KoboURL,
		SourceUsername: cfg.KoboUsername,
		SourcePassword: cfg.KoboPassword,
		Connection:     conn,
		Namespace:      koboload.TargetNamespace,
		Table:          koboload.TargetTable,
		Mode:           mode,
		DryRun:         runFlags.dryRun,
		Preview:        runFlags.preview,
		Timeout:        runFlags.timeout,
		RunID:          runID,
		Verbose:        verbose,
	}, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	runCfg, err := buildRunConfig(verbose)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)
	v, _, _ := resolveVersionInfo()
	fetcher := fetch.New(
		fetch.WithTimeout(runFlags.httpTimeout),
		fetch.WithUserAgent(koboload.ApplicationName+"/"+v),
	)
	connectorFactory := func(c *koboload.ConnectionConfig) (koboload.Connector, error) {
		return db.NewConnector(c, logger), nil
	}
	pipeline := services.NewPipeline(fetcher, connectorFactory, logger, cmd.OutOrStdout())

	ctx, cancel := newRunContext(runCfg.Timeout)
	defer cancel()

	// Handle interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling load...")
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := pipeline.Run(ctx, runCfg)
	if summary != nil {
		ui.RenderSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return fmt.Errorf("run %s failed: %w", runCfg.RunID, err)
	}

	return nil
}

// newRunContext bounds the run by timeout; zero means no limit.
func newRunContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
