package core

import (
	"errors"
	"fmt"

	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, stale_element, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
	Report   *diag.Report           // Structured diagnostics for user-visible failures
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
// This lets callers write errors.Is(err, core.ErrElementNotFound).
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	c := e.clone()
	c.Message = msg
	return c
}

// WithMessagef is WithMessage with formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c := e.clone()
	c.Details = merged
	return c
}

// WithReport returns a copy of the error carrying the diagnostics report.
func (e *ExecutionError) WithReport(r *diag.Report) *ExecutionError {
	c := e.clone()
	c.Report = r
	return c
}

// Diagnostics returns the attached report, building one from the error's
// code, message and details if none was attached.
func (e *ExecutionError) Diagnostics() *diag.Report {
	if e.Report != nil {
		return e.Report
	}
	ctx := make(map[string]interface{}, len(e.Details)+2)
	for k, v := range e.Details {
		ctx[k] = v
	}
	ctx[diag.KeyMessage] = e.Message
	if e.Cause != nil {
		ctx[diag.KeyError] = e.Cause.Error()
	}
	return diag.Build(e.Code, ctx, nil, nil)
}

func (e *ExecutionError) clone() *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    e.Cause,
		Report:   e.Report,
	}
}

// Error codes
const (
	CodeParseError            = "parse_error"
	CodeElementNotFound       = "element_not_found"
	CodeMultipleElements      = "multiple_elements_found"
	CodeStaleElement          = "stale_element"
	CodeActionFailed          = "action_failed"
	CodeConnectionError       = "connection_error"
	CodeConnectionTimeout     = "connection_timeout"
	CodeAssertionFailed       = "assertion_failed"
	CodeAssertionTimeout      = "assertion_timeout"
	CodeUnknownOperator       = "unknown_operator"
	CodeUnsupportedComparison = "unsupported_comparison"
	CodeUnknownProperty       = "unknown_property"
	CodeInvalidConfig         = "invalid_config"
)

// Predefined errors
var (
	// Locator errors
	ErrParse = &ExecutionError{
		Category: ErrCategoryLocator,
		Code:     CodeParseError,
		Message:  "invalid locator",
	}

	// Resolution errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     CodeElementNotFound,
		Message:  "element not found",
	}
	ErrMultipleElementsFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     CodeMultipleElements,
		Message:  "multiple elements found",
	}
	ErrStaleElement = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     CodeStaleElement,
		Message:  "element handle is stale",
	}

	// Action errors
	ErrActionFailed = &ExecutionError{
		Category: ErrCategoryAction,
		Code:     CodeActionFailed,
		Message:  "action failed",
	}

	// Connection errors
	ErrConnection = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     CodeConnectionError,
		Message:  "agent connection failed",
	}
	ErrConnectionTimeout = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     CodeConnectionTimeout,
		Message:  "agent did not respond in time",
	}

	// Assertion errors
	ErrAssertionFailed = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     CodeAssertionFailed,
		Message:  "assertion failed",
	}
	ErrAssertionTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     CodeAssertionTimeout,
		Message:  "assertion not satisfied before timeout",
	}

	// Config errors
	ErrUnknownOperator = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     CodeUnknownOperator,
		Message:  "unknown assertion operator",
	}
	ErrUnsupportedComparison = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     CodeUnsupportedComparison,
		Message:  "comparison not supported for value type",
	}
	ErrUnknownProperty = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     CodeUnknownProperty,
		Message:  "unknown element property",
	}
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     CodeInvalidConfig,
		Message:  "invalid configuration",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CodeOf returns the code of the outermost ExecutionError in err's chain,
// or "" if there is none.
func CodeOf(err error) string {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// CategoryOf returns the category of the outermost ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ErrCategoryNone
}

// IsRetryable reports whether a failure of a polled operation may clear up
// on a later attempt. Locator syntax errors, failed actions and caller
// configuration mistakes never do; everything else, including errors that
// did not come from this module, is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch CategoryOf(err) {
	case ErrCategoryLocator, ErrCategoryAction, ErrCategoryConfig:
		return false
	}
	switch CodeOf(err) {
	case CodeAssertionFailed, CodeAssertionTimeout:
		return false
	}
	return true
}

// ReportOf returns the diagnostics report for err, if err carries an ExecutionError.
func ReportOf(err error) *diag.Report {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Diagnostics()
	}
	return nil
}
