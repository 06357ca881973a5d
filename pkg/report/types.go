// Package report writes check run results to disk.
//
// Layout of a report directory:
//   - report.json: the index, one entry per check file with its checks
//   - report.html: a self-contained page rendered from the index
//   - allure-results/: optional Allure result files, one per check
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusSkipped Status = "skipped"
)

// IsSuccess reports whether s counts as passing.
func (s Status) IsSuccess() bool {
	return s == StatusPassed
}

// Index is the main report file.
type Index struct {
	Version   string       `json:"version"`
	RunID     string       `json:"runId"`
	Status    Status       `json:"status"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
	Runner    RunnerInfo   `json:"runner"`
	Summary   Summary      `json:"summary"`
	Suites    []SuiteEntry `json:"suites"`
}

// RunnerInfo describes what produced the run.
type RunnerInfo struct {
	Version string `json:"version"`
	Agent   string `json:"agent"` // host:port or "snapshot <path>"
}

// Summary counts checks across all suites.
type Summary struct {
	Files   int `json:"files"`
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// SuiteEntry is one check file.
type SuiteEntry struct {
	Name       string       `json:"name"`
	RunID      string       `json:"runId"`
	SourceFile string       `json:"sourceFile"`
	Status     Status       `json:"status"`
	StartTime  time.Time    `json:"startTime"`
	Duration   int64        `json:"duration"` // milliseconds
	Checks     []CheckEntry `json:"checks"`
}

// CheckEntry is one check.
type CheckEntry struct {
	Index       int          `json:"index"`
	Name        string       `json:"name"`
	Locator     string       `json:"locator"`
	Status      Status       `json:"status"`
	Category    string       `json:"category,omitempty"`
	StartTime   time.Time    `json:"startTime"`
	Duration    int64        `json:"duration"` // milliseconds
	Value       interface{}  `json:"value,omitempty"`
	Error       string       `json:"error,omitempty"`
	Diagnostics *diag.Report `json:"diagnostics,omitempty"`
}

// Build assembles an index from suite results.
func Build(suites []*core.SuiteResult, info RunnerInfo) *Index {
	idx := &Index{
		Version: Version,
		RunID:   uuid.NewString(),
		Status:  StatusPassed,
		Runner:  info,
		Suites:  make([]SuiteEntry, 0, len(suites)),
	}

	for i, s := range suites {
		if i == 0 || s.StartTime.Before(idx.StartTime) {
			idx.StartTime = s.StartTime
		}
		if end := s.StartTime.Add(s.Duration); end.After(idx.EndTime) {
			idx.EndTime = end
		}

		entry := SuiteEntry{
			Name:       s.Name,
			RunID:      s.RunID,
			SourceFile: s.FilePath,
			Status:     statusOf(s.AggregateStatus()),
			StartTime:  s.StartTime,
			Duration:   s.Duration.Milliseconds(),
			Checks:     make([]CheckEntry, 0, len(s.Checks)),
		}
		for _, c := range s.Checks {
			ce := CheckEntry{
				Index:       c.Index,
				Name:        c.Name,
				Locator:     c.Locator,
				Status:      statusOf(c.Status),
				StartTime:   c.StartTime,
				Duration:    c.Duration.Milliseconds(),
				Value:       c.Value,
				Error:       c.Error,
				Diagnostics: c.Diagnostics,
			}
			if c.Category != core.ErrCategoryNone {
				ce.Category = c.Category.String()
			}
			entry.Checks = append(entry.Checks, ce)
			idx.Summary.add(ce.Status)
		}
		idx.Suites = append(idx.Suites, entry)
		idx.Status = worse(idx.Status, entry.Status)
	}
	idx.Summary.Files = len(suites)
	return idx
}

func (s *Summary) add(st Status) {
	s.Total++
	switch st {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusErrored:
		s.Errored++
	case StatusSkipped:
		s.Skipped++
	}
}

func statusOf(s core.CheckStatus) Status {
	switch s {
	case core.StatusPassed:
		return StatusPassed
	case core.StatusFailed:
		return StatusFailed
	case core.StatusSkipped:
		return StatusSkipped
	default:
		return StatusErrored
	}
}

// severity orders statuses for rolling suites up into the run status.
var severity = map[Status]int{
	StatusPassed:  0,
	StatusSkipped: 1,
	StatusFailed:  2,
	StatusErrored: 3,
}

func worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}
