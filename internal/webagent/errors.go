// internal/webagent/errors.go
package webagent

import "errors"

// ErrorCode is a string type used for structured error reporting from the
// navigation loop. Using a custom type ensures that only predefined constants
// reach result reasons and logs.
type ErrorCode string

const (
	// -- Step Execution Errors --
	ErrCodeTargetNotFound    ErrorCode = "TARGET_NOT_FOUND"
	ErrCodeBrowserFailure    ErrorCode = "BROWSER_DRIVER_FAILURE"
	ErrCodeOracleMalformed   ErrorCode = "ORACLE_MALFORMED_RESPONSE"
	ErrCodeOracleUnavailable ErrorCode = "ORACLE_UNAVAILABLE"

	// -- Session Termination Errors --
	ErrCodeTimeout    ErrorCode = "TIMEOUT"
	ErrCodeBlocked    ErrorCode = "BLOCKED"
	ErrCodeStuck      ErrorCode = "STUCK"
	ErrCodeHelpNeeded ErrorCode = "HELP_REQUESTED"
)

// ErrTargetNotFound is returned when a decision references an item ID that
// does not exist in the current page snapshot. Fail fast rather than guess a
// nearby element.
var ErrTargetNotFound = errors.New("decision target not found in page snapshot")
