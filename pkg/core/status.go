package core

// CheckStatus represents the execution status of a check
type CheckStatus int

const (
	StatusPending CheckStatus = iota // Not yet started
	StatusRunning                    // Currently executing
	StatusPassed                     // Completed successfully
	StatusFailed                     // Assertion failed (expected state never reached)
	StatusErrored                    // Unexpected error (locator, connection, configuration)
	StatusSkipped                    // Previous check failed with stop-on-failure
)

// String returns the string representation of CheckStatus
func (s CheckStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in JSON and YAML results.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if the status is a final state
func (s CheckStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s CheckStatus) IsSuccess() bool {
	return s == StatusPassed
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryLocator                         // Malformed locator
	ErrCategoryResolution                      // Element not found, ambiguous, stale
	ErrCategoryAssertion                       // Operator not satisfied
	ErrCategoryTimeout                         // Operator not satisfied within timeout
	ErrCategoryConnection                      // Agent unreachable or slow
	ErrCategoryAction                          // Agent could not complete a mutation
	ErrCategoryConfig                          // Unknown operator, unsupported comparison, bad config
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryLocator:
		return "locator"
	case ErrCategoryResolution:
		return "resolution"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryAction:
		return "action"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

func (c ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// StatusForError maps a check failure to its status: assertion outcomes are
// failures, everything else is an error.
func StatusForError(err error) CheckStatus {
	if err == nil {
		return StatusPassed
	}
	switch CategoryOf(err) {
	case ErrCategoryAssertion, ErrCategoryTimeout:
		return StatusFailed
	default:
		return StatusErrored
	}
}
