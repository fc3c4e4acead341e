package store

import (
	"context"
	"errors"
	"strings"
)

// Error kinds surfaced by the core. The root package re-exports these;
// internal packages wrap them with fmt.Errorf("...: %w", ...) so that
// errors.Is classification survives the service layers.
var (
	// ErrNotFound: a referenced person or organization id is unknown.
	ErrNotFound = errors.New("orgtrace: not found")

	// ErrInvalidArgument: malformed input rejected before store work.
	ErrInvalidArgument = errors.New("orgtrace: invalid argument")

	// ErrUnavailable: the store is unreachable or the pool is exhausted,
	// after the wrapper's single retry.
	ErrUnavailable = errors.New("orgtrace: store unavailable")
)

// SQLSTATE codes the core needs to recognize.
const (
	pgUndefinedFunction   = "42883"
	pgUndefinedTable      = "42P01"
	pgConnectionException = "08"    // class prefix
	pgAdminShutdown       = "57P01"
	pgCrashShutdown       = "57P02"
	pgCannotConnectNow    = "57P03"
)

// SQLState extracts the SQLSTATE code from a PostgreSQL error.
// Works with multiple drivers via interface detection:
//   - pgx/pgconn: SQLState() string
//   - lib/pq: Code field (via error interface)
//
// Returns empty string if the error doesn't carry a SQLSTATE.
func SQLState(err error) string {
	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	type codeErr interface{ Code() string }
	var ce codeErr
	if errors.As(err, &ce) {
		return ce.Code()
	}

	// Fallback: pgx renders "... (SQLSTATE 42P01)" in wrapped messages.
	errStr := err.Error()
	for _, prefix := range []string{"SQLSTATE ", "SQLSTATE: "} {
		if idx := strings.Index(errStr, prefix); idx >= 0 {
			start := idx + len(prefix)
			if start+5 <= len(errStr) {
				return errStr[start : start+5]
			}
		}
	}
	return ""
}

// IsUndefinedFunction reports whether err means a store function is
// missing (SQLSTATE 42883). The name resolver uses this to fall back
// from trigram search to substring containment.
func IsUndefinedFunction(err error) bool {
	return SQLState(err) == pgUndefinedFunction
}

// IsUndefinedTable reports whether err means a relation is missing.
func IsUndefinedTable(err error) bool {
	return SQLState(err) == pgUndefinedTable
}

// isConnectivity reports whether err looks like a transport-level
// failure worth a single retry: connection-class SQLSTATEs, server
// shutdown codes, or a dial failure before any SQLSTATE exists.
func isConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := SQLState(err)
	switch {
	case strings.HasPrefix(code, pgConnectionException):
		return true
	case code == pgAdminShutdown, code == pgCrashShutdown, code == pgCannotConnectNow:
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "failed to connect")
}
