package koboload

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes of a load run.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	summary, err := pipeline.Run(ctx, cfg)
//	if errors.Is(err, koboload.ErrFetchFailed) {
//	    // nothing was written to the database
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFetchFailed indicates the remote export could not be retrieved
	// or answered with a non-success status.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrEmptyInput indicates the fetched body carried no header line.
	ErrEmptyInput = errors.New("empty input")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrProvisionFailed indicates the namespace or table could not be (re)created.
	ErrProvisionFailed = errors.New("schema provisioning failed")

	// ErrLoadFailed indicates the load was rolled back and the table left untouched.
	ErrLoadFailed = errors.New("load failed")

	// ErrPartialLoad indicates some rows were committed and some were not.
	ErrPartialLoad = errors.New("partial load")
)

// usageErrorPatterns are message prefixes cobra and pflag produce for bad invocations.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrFetchFailed), errors.Is(err, ErrEmptyInput):
		return ExitFetchFailed
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrPartialLoad):
		return ExitPartialLoad
	case errors.Is(err, ErrLoadFailed), errors.Is(err, ErrProvisionFailed):
		return ExitLoadFailed
	}

	errStr := err.Error()
	for _, p := range usageErrorPatterns {
		if strings.HasPrefix(errStr, p) {
			return ExitUsageError
		}
	}

	// Connection errors raised before they could be wrapped
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
