package core

import (
	"errors"
	"testing"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusErrored, "errored"},
		{StatusSkipped, "skipped"},
		{CheckStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckStatus_IsTerminal(t *testing.T) {
	terminal := []CheckStatus{StatusPassed, StatusFailed, StatusErrored, StatusSkipped}
	nonTerminal := []CheckStatus{StatusPending, StatusRunning}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		cat  ErrorCategory
		want string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryLocator, "locator"},
		{ErrCategoryResolution, "resolution"},
		{ErrCategoryAssertion, "assertion"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConnection, "connection"},
		{ErrCategoryAction, "action"},
		{ErrCategoryConfig, "config"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.cat.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want CheckStatus
	}{
		{nil, StatusPassed},
		{ErrAssertionTimeout, StatusFailed},
		{ErrAssertionFailed, StatusFailed},
		{ErrParse, StatusErrored},
		{ErrConnection, StatusErrored},
		{errors.New("boom"), StatusErrored},
	}
	for _, tt := range tests {
		if got := StatusForError(tt.err); got != tt.want {
			t.Errorf("StatusForError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestConnectionStatus_String(t *testing.T) {
	if Connected.String() != "connected" || Disconnected.String() != "disconnected" || TimedOut.String() != "timed_out" {
		t.Error("unexpected ConnectionStatus strings")
	}
}
