package report

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	Parameters    []AllureParameter   `json:"parameters,omitempty"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureParameter is a name/value shown next to the result.
type AllureParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// AllureExecutor describes what produced the results.
type AllureExecutor struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	BuildName  string `json:"buildName"`
	ReportName string `json:"reportName"`
}

// AllureDir is the directory GenerateAllure writes into.
const AllureDir = "allure-results"

// GenerateAllure writes Allure-compatible result files for the report in
// reportDir to <reportDir>/allure-results/, one result per check.
func GenerateAllure(reportDir string) error {
	index, err := ReadReport(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	allureDir := filepath.Join(reportDir, AllureDir)
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	for si := range index.Suites {
		suite := &index.Suites[si]
		for ci := range suite.Checks {
			result := buildAllureResult(index, si, &suite.Checks[ci])
			path := filepath.Join(allureDir, result.UUID+"-result.json")
			if err := atomicWriteJSON(path, result); err != nil {
				return fmt.Errorf("write allure result %s: %w", result.UUID, err)
			}
		}
	}

	if err := atomicWriteJSON(filepath.Join(allureDir, "categories.json"), allureCategories); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}
	if err := writeAllureEnvironment(allureDir, index); err != nil {
		return err
	}
	executor := AllureExecutor{
		Name:       "javagui-runner",
		Type:       "local",
		BuildName:  index.RunID,
		ReportName: "javagui-runner checks",
	}
	if err := atomicWriteJSON(filepath.Join(allureDir, "executor.json"), executor); err != nil {
		return fmt.Errorf("write executor.json: %w", err)
	}
	return nil
}

func buildAllureResult(index *Index, si int, check *CheckEntry) AllureResult {
	suite := &index.Suites[si]
	fullName := fmt.Sprintf("%s#%d %s", suite.SourceFile, check.Index, check.Name)
	start := check.StartTime.UnixMilli()

	result := AllureResult{
		UUID:      fmt.Sprintf("%s-%03d-%03d", index.RunID, si, check.Index),
		HistoryID: fnv32aHash(fullName),
		FullName:  fullName,
		Name:      check.Name,
		Status:    mapAllureStatus(check.Status),
		Stage:     "finished",
		Start:     start,
		Stop:      start + check.Duration,
		Labels: []AllureLabel{
			{Name: "suite", Value: suite.Name},
			{Name: "framework", Value: "javagui-runner"},
			{Name: "language", Value: "java"},
		},
		Parameters: []AllureParameter{
			{Name: "locator", Value: check.Locator},
		},
	}
	if check.Category != "" {
		result.Labels = append(result.Labels, AllureLabel{Name: "tag", Value: check.Category})
	}
	if check.Error != "" {
		result.StatusDetails.Message = check.Error
		if check.Diagnostics != nil {
			result.StatusDetails.Trace = check.Diagnostics.String()
		}
	}
	return result
}

// mapAllureStatus maps report Status to Allure status string. Errored
// checks are "broken" in Allure terms.
func mapAllureStatus(s Status) string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "broken"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

var allureCategories = []AllureCategory{
	{Name: "Element Not Found", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*no component matches.*|.*not found.*"},
	{Name: "Ambiguous Locator", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*matches \\d+ components.*|.*multiple.*"},
	{Name: "Stale Element", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*stale.*"},
	{Name: "Invalid Locator", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*invalid locator.*"},
	{Name: "Assertion Timeout", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*timed out.*|.*timeout.*"},
	{Name: "Assertion Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*"},
	{Name: "Connection Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*connection.*|.*agent.*"},
	{Name: "Action Failed", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*action.*"},
}

// writeAllureEnvironment writes environment.properties with runner metadata.
func writeAllureEnvironment(allureDir string, index *Index) error {
	var b strings.Builder
	b.WriteString("framework=javagui-runner\n")
	if index.Runner.Version != "" {
		b.WriteString(fmt.Sprintf("runner.version=%s\n", index.Runner.Version))
	}
	if index.Runner.Agent != "" {
		b.WriteString(fmt.Sprintf("runner.agent=%s\n", index.Runner.Agent))
	}
	b.WriteString(fmt.Sprintf("run.id=%s\n", index.RunID))

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}
	return nil
}
