package koboload

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load completed
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitLoadFailed      = 13 // Provisioning or load failed, nothing committed
	ExitFetchFailed     = 20 // Remote export unavailable or non-success status
	ExitPartialLoad     = 21 // Best-effort load committed only some rows
)

const (
	// TargetNamespace is the destination schema. The source system created it
	// unquoted as Chidinma_1, which PostgreSQL folds to lower case.
	TargetNamespace = "chidinma_1"

	// TargetTable is the destination table, dropped and recreated on every run.
	TargetTable = "customers_feedback"

	// FieldSeparator is the delimiter of the form export.
	FieldSeparator = ';'

	// DefaultPreviewRows mirrors the five-row sample printed before loading.
	DefaultPreviewRows = 5

	// MaxFailuresShown caps the per-row failures listed in the summary.
	MaxFailuresShown = 20

	// ApplicationName is reported to PostgreSQL as application_name.
	ApplicationName = "koboload"
)
