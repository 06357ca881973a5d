package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Checks slower than this are flagged in the progress output.
const slowThreshold = 5 * time.Second

// colorsEnabled reports whether w is a terminal and colors were not
// turned off with --no-ansi or NO_COLOR.
func colorsEnabled(c *cli.Context, w io.Writer) bool {
	if c.Bool("no-ansi") || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func colorize(c *cli.Context, code, s string) string {
	if !colorsEnabled(c, c.App.Writer) {
		return s
	}
	return code + s + colorReset
}

// printCheck writes one progress line for a finished check.
func printCheck(c *cli.Context, r core.CheckResult) {
	w := c.App.Writer
	dur := formatDuration(r.Duration)
	switch r.Status {
	case core.StatusPassed:
		symbol, code := "✓", colorGreen
		if r.Duration >= slowThreshold {
			symbol, code = "⚠", colorYellow
		}
		fmt.Fprintf(w, "    %s %s (%s)\n", colorize(c, code, symbol), r.Name, dur)
	case core.StatusSkipped:
		fmt.Fprintf(w, "    %s %s\n", colorize(c, colorCyan, "-"), r.Name)
	default:
		fmt.Fprintf(w, "    %s %s (%s)\n", colorize(c, colorRed, "✗"), r.Name, dur)
		if r.Error != "" {
			fmt.Fprintf(w, "      %s %s\n", colorize(c, colorGray, "╰─"), r.Error)
		}
		if r.Diagnostics != nil {
			for _, line := range strings.Split(strings.TrimRight(r.Diagnostics.String(), "\n"), "\n")[1:] {
				fmt.Fprintf(w, "         %s\n", line)
			}
		}
	}
}

// printSummary writes the totals table for all suites.
func printSummary(c *cli.Context, suites []*core.SuiteResult, total time.Duration) {
	w := c.App.Writer
	const tableWidth = 80

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-38s %7s %6s %6s %6s %6s %10s\n", "File", "Status", "Pass", "Fail", "Error", "Skip", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))

	var pass, fail, errored, skip, passedFiles int
	for _, s := range suites {
		status := "✓ PASS"
		code := colorGreen
		if !s.Success() {
			status, code = "✗ FAIL", colorRed
		} else {
			passedFiles++
		}

		name := s.Name
		if len(name) > 38 {
			name = name[:35] + "..."
		}
		fmt.Fprintf(w, "  %-38s %s %6d %6d %6d %6d %10s\n",
			name, colorize(c, code, fmt.Sprintf("%7s", status)),
			s.PassedChecks, s.FailedChecks, s.ErroredChecks, s.SkippedChecks,
			formatDuration(s.Duration))

		pass += s.PassedChecks
		fail += s.FailedChecks
		errored += s.ErroredChecks
		skip += s.SkippedChecks
	}

	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	code := colorGreen
	if passedFiles < len(suites) {
		code = colorRed
	}
	fmt.Fprintf(w, "  %s %s %6d %6d %6d %6d %10s\n",
		colorize(c, colorBold, fmt.Sprintf("%-38s", "TOTAL")),
		colorize(c, code, fmt.Sprintf("%7s", fmt.Sprintf("%d/%d", passedFiles, len(suites)))),
		pass, fail, errored, skip, formatDuration(total))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
}

// formatDuration shows milliseconds below one second, seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
