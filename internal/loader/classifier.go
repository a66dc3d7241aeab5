package loader

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure reasons reported per row.
const (
	ReasonDataException       = "data exception"
	ReasonIntegrityViolation  = "integrity violation"
	ReasonStatementRejected   = "statement rejected"
	ReasonConnectionLost      = "connection lost"
	ReasonServerUnavailable   = "server unavailable"
	ReasonTransactionConflict = "transaction conflict"
	ReasonTransactionAborted  = "transaction aborted"
	ReasonCancelled           = "cancelled"
	ReasonEncoding            = "parameter encoding"
	ReasonUnknown             = "unknown"
)

// Classification describes why an insert failed and whether later rows can
// still succeed on the same connection.
type Classification struct {
	Reason string
	Code   string

	// Fatal is true when every following insert would fail the same way
	Fatal bool
}

// Classify inspects an insert error.
//
// Row-specific problems (bad value for a typed column, constraint
// violations) are not fatal. Connection loss, server shutdown and errors in
// the statement itself are.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{Reason: ReasonCancelled, Fatal: true}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgError(pgErr)
	}

	if isNetworkError(err) || isConnectionError(err) {
		return Classification{Reason: ReasonConnectionLost, Fatal: true}
	}

	if strings.Contains(strings.ToLower(err.Error()), "unable to encode") ||
		strings.Contains(strings.ToLower(err.Error()), "cannot find encode plan") {
		return Classification{Reason: ReasonEncoding}
	}

	return Classification{Reason: ReasonUnknown}
}

// classifyPgError maps SQLSTATE classes.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
func classifyPgError(pgErr *pgconn.PgError) Classification {
	code := pgErr.Code
	c := Classification{Code: code}

	switch {
	// Class 22 - Data Exception (invalid input syntax for integer/timestamp, overflow)
	case strings.HasPrefix(code, "22"):
		c.Reason = ReasonDataException

	// Class 23 - Integrity Constraint Violation
	case strings.HasPrefix(code, "23"):
		c.Reason = ReasonIntegrityViolation

	// Class 40 - Transaction Rollback (serialization failure, deadlock)
	case strings.HasPrefix(code, "40"):
		c.Reason = ReasonTransactionConflict

	// Class 25 - Invalid Transaction State (e.g. 25P02 in failed transaction)
	case strings.HasPrefix(code, "25"):
		c.Reason = ReasonTransactionAborted
		c.Fatal = true

	// Class 42 - Syntax Error or Access Rule Violation (table gone, no privilege)
	case strings.HasPrefix(code, "42"):
		c.Reason = ReasonStatementRejected
		c.Fatal = true

	// Class 08 - Connection Exception
	case strings.HasPrefix(code, "08"):
		c.Reason = ReasonConnectionLost
		c.Fatal = true

	// Class 53 - Insufficient Resources, Class 57 - Operator Intervention
	case strings.HasPrefix(code, "53"), strings.HasPrefix(code, "57"):
		c.Reason = ReasonServerUnavailable
		c.Fatal = true

	default:
		c.Reason = ReasonUnknown
	}

	return c
}

// isNetworkError checks for network-level errors.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) || pgconn.Timeout(err)
}

// isConnectionError checks pgx/pgconn messages for a dead connection.
func isConnectionError(err error) bool {
	errMsg := strings.ToLower(err.Error())

	patterns := []string{
		"conn closed",
		"connection reset",
		"connection refused",
		"broken pipe",
		"server closed the connection",
		"unexpected eof",
		"closed pool",
	}

	for _, pattern := range patterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
