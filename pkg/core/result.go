package core

import (
	"time"

	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// CheckResult captures the complete outcome of executing a single check
type CheckResult struct {
	// Identity
	Index   int    `json:"index" yaml:"index"`     // 0-based position in the check file
	Name    string `json:"name" yaml:"name"`       // Check label
	Locator string `json:"locator" yaml:"locator"` // Literal locator string

	// Status
	Status   CheckStatus   `json:"status" yaml:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty" yaml:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime" yaml:"startTime"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	// Output
	Value interface{} `json:"value,omitempty" yaml:"value,omitempty"` // Value read or satisfied

	// Error Details
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics *diag.Report `json:"diagnostics,omitempty" yaml:"-"`
}

// SuiteResult captures the complete outcome of executing a check file
type SuiteResult struct {
	// Identity
	Name     string `json:"name"`
	RunID    string `json:"runId"`
	FilePath string `json:"filePath"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Checks []CheckResult `json:"checks"`

	// Summary (computed)
	TotalChecks   int `json:"totalChecks"`
	PassedChecks  int `json:"passedChecks"`
	FailedChecks  int `json:"failedChecks"`
	ErroredChecks int `json:"erroredChecks"`
	SkippedChecks int `json:"skippedChecks"`
}

// ComputeSummary calculates check counts from the Checks slice
func (s *SuiteResult) ComputeSummary() {
	s.TotalChecks = len(s.Checks)
	s.PassedChecks = 0
	s.FailedChecks = 0
	s.ErroredChecks = 0
	s.SkippedChecks = 0

	for _, c := range s.Checks {
		switch c.Status {
		case StatusPassed:
			s.PassedChecks++
		case StatusFailed:
			s.FailedChecks++
		case StatusErrored:
			s.ErroredChecks++
		case StatusSkipped:
			s.SkippedChecks++
		}
	}
}

// AggregateStatus determines the suite status from check results
// Rules:
// - Any errored check → StatusErrored
// - Any failed check → StatusFailed
// - Otherwise → StatusPassed (an empty suite passes)
func (s *SuiteResult) AggregateStatus() CheckStatus {
	status := StatusPassed
	for _, c := range s.Checks {
		switch c.Status {
		case StatusErrored:
			return StatusErrored
		case StatusFailed:
			status = StatusFailed
		}
	}
	return status
}

// Success returns true if every check passed
func (s *SuiteResult) Success() bool {
	return s.AggregateStatus().IsSuccess()
}
