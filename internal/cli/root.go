package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "koboload",
	Short: "Load a KoboToolbox form export into PostgreSQL",
	Long: `koboload fetches a form export from KoboToolbox as semicolon-separated text,
parses it, and replaces the "chidinma_1"."customers_feedback" table with its rows.

Every run drops and recreates the table. There is no incremental mode.

Configuration is read from the environment, and from a .env file in the
current directory if one exists:
  KOBO_URL, KOBO_USERNAME, KOBO_PASSWORD
  PG_HOST, PG_PORT, PG_USER, PG_PASSWORD, PG_DATABASE

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  13 - Load failed, nothing committed
  20 - Export could not be fetched or was empty
  21 - Best-effort load committed only some rows`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
