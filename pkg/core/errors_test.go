package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrElementNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrConnectionTimeout
	newErr := original.WithMessagef("no reply after %dms", 500)

	if newErr.Message != "no reply after 500ms" {
		t.Errorf("Message = %q, want 'no reply after 500ms'", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message == "no reply after 500ms" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"locator": "JButton#ok",
		"count":   2,
	})

	if newErr.Details["locator"] != "JButton#ok" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["locator"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestExecutionError_WithReport(t *testing.T) {
	r := diag.Build(CodeElementNotFound, nil, nil, nil)
	err := ErrElementNotFound.WithReport(r)

	if err.Diagnostics() != r {
		t.Error("Diagnostics() should return the attached report")
	}
	if ErrElementNotFound.Report != nil {
		t.Error("WithReport() modified original error")
	}
}

func TestExecutionError_DiagnosticsFallback(t *testing.T) {
	err := ErrStaleElement.
		WithMessage("handle for e12 is stale").
		WithDetails(map[string]interface{}{diag.KeyRemoteID: "e12"}).
		WithCause(errors.New("generation 3 superseded"))

	r := err.Diagnostics()
	if r.Kind != CodeStaleElement {
		t.Errorf("Kind = %q", r.Kind)
	}
	if r.Message != "handle for e12 is stale" {
		t.Errorf("Message = %q", r.Message)
	}
	if r.Context[diag.KeyRemoteID] != "e12" {
		t.Errorf("remote_id missing from context: %v", r.Context)
	}
	if r.Context[diag.KeyError] != "generation 3 superseded" {
		t.Errorf("cause missing from context: %v", r.Context)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrParse, ErrCategoryLocator, "parse_error"},
		{ErrElementNotFound, ErrCategoryResolution, "element_not_found"},
		{ErrMultipleElementsFound, ErrCategoryResolution, "multiple_elements_found"},
		{ErrStaleElement, ErrCategoryResolution, "stale_element"},
		{ErrActionFailed, ErrCategoryAction, "action_failed"},
		{ErrConnection, ErrCategoryConnection, "connection_error"},
		{ErrConnectionTimeout, ErrCategoryConnection, "connection_timeout"},
		{ErrAssertionFailed, ErrCategoryAssertion, "assertion_failed"},
		{ErrAssertionTimeout, ErrCategoryTimeout, "assertion_timeout"},
		{ErrUnknownOperator, ErrCategoryConfig, "unknown_operator"},
		{ErrUnsupportedComparison, ErrCategoryConfig, "unsupported_comparison"},
		{ErrUnknownProperty, ErrCategoryConfig, "unknown_property"},
		{ErrInvalidConfig, ErrCategoryConfig, "invalid_config"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewExecutionError(t *testing.T) {
	err := NewExecutionError(ErrCategoryAction, "custom_error", "custom message")

	if err.Category != ErrCategoryAction {
		t.Errorf("Category = %s, want %s", err.Category, ErrCategoryAction)
	}
	if err.Code != "custom_error" {
		t.Errorf("Code = %s, want 'custom_error'", err.Code)
	}
	if err.Message != "custom message" {
		t.Errorf("Message = %s, want 'custom message'", err.Message)
	}
}

func TestExecutionError_ErrorsIs(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrConnection.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
	if !errors.Is(err, ErrConnection) {
		t.Error("errors.Is() should match by code")
	}
	if errors.Is(err, ErrConnectionTimeout) {
		t.Error("errors.Is() should not match a different code")
	}

	wrapped := fmt.Errorf("fetching tree: %w", err)
	if !errors.Is(wrapped, ErrConnection) {
		t.Error("errors.Is() should see through fmt wrapping")
	}
	if CodeOf(wrapped) != CodeConnectionError {
		t.Errorf("CodeOf() = %q", CodeOf(wrapped))
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("flaky"), true},
		{"not found", ErrElementNotFound, true},
		{"multiple", ErrMultipleElementsFound, true},
		{"stale", ErrStaleElement, true},
		{"connection", ErrConnection, true},
		{"connection timeout", fmt.Errorf("wrap: %w", ErrConnectionTimeout), true},
		{"parse", ErrParse, false},
		{"action", ErrActionFailed, false},
		{"unknown operator", ErrUnknownOperator, false},
		{"unsupported", ErrUnsupportedComparison, false},
		{"unknown property", ErrUnknownProperty, false},
		{"assertion timeout", ErrAssertionTimeout, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportOf(t *testing.T) {
	if ReportOf(errors.New("plain")) != nil {
		t.Error("ReportOf() should be nil for plain errors")
	}
	r := ReportOf(fmt.Errorf("x: %w", ErrElementNotFound))
	if r == nil || r.Kind != CodeElementNotFound {
		t.Errorf("ReportOf() = %+v", r)
	}
}
