package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/javagui-runner/pkg/checks"
	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/report"
)

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "Run check files against the application",
	ArgsUsage: "<file-or-dir>...",
	Description: `Runs YAML check files in order. A directory runs every .yaml/.yml file
in it, sorted by name, except files that other files include. All files are
loaded and validated before anything runs. The exit code is non-zero if any
check fails.

Examples:
  javagui-runner check checks/login.yaml
  javagui-runner check --stop-on-failure checks/
  javagui-runner check --output reports/ --allure checks/
  javagui-runner check --include-tags smoke checks/`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "stop-on-failure",
			Usage: "Skip the remaining checks of a file after the first failure",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write report.json and report.html to this directory",
		},
		&cli.BoolFlag{
			Name:  "allure",
			Usage: "Also write Allure results to <output>/allure-results",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only run files with one of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip files with any of these tags",
		},
	},
	Action: runCheck,
}

func runCheck(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no check files given")
	}
	if c.Bool("allure") && c.String("output") == "" {
		return fmt.Errorf("--allure requires --output")
	}
	// Load everything first so a typo fails before the GUI is touched.
	parsed, err := loadCheckFiles(c)
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	runner := checks.NewRunner(e.session)
	runner.StopOnFailure = c.Bool("stop-on-failure")
	runner.OnCheckEnd = func(r core.CheckResult) { printCheck(c, r) }

	start := time.Now()
	suites := make([]*core.SuiteResult, 0, len(parsed))
	for i, f := range parsed {
		fmt.Fprintf(c.App.Writer, "\n  %s %s (%s)\n",
			colorize(c, colorCyan, fmt.Sprintf("[%d/%d]", i+1, len(parsed))),
			colorize(c, colorBold, f.Name), f.SourcePath)
		fmt.Fprintln(c.App.Writer, strings.Repeat("─", 60))
		suites = append(suites, runner.Run(f))
	}
	printSummary(c, suites, time.Since(start))

	if dir := c.String("output"); dir != "" {
		info := report.RunnerInfo{Version: Version, Agent: describeAgent(c, e.cfg)}
		if err := writeReports(dir, report.Build(suites, info), c.Bool("allure")); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "\n  Report: %s\n", filepath.Join(dir, "report.html"))
	}

	failed := 0
	for _, s := range suites {
		failed += s.TotalChecks - s.PassedChecks
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) did not pass", failed)
	}
	return nil
}

// loadCheckFiles validates the file arguments and returns the files to run.
func loadCheckFiles(c *cli.Context) ([]*checks.File, error) {
	v := checks.NewValidator(c.StringSlice("include-tags"), c.StringSlice("exclude-tags"))
	result := v.Validate(c.Args().Slice()...)
	if !result.IsValid() {
		return nil, fmt.Errorf("%d problem(s) in check files:\n%w", len(result.Errors), result.Err())
	}
	if len(result.Files) == 0 {
		return nil, fmt.Errorf("no check files to run")
	}
	return result.Files, nil
}

func writeReports(dir string, idx *report.Index, allure bool) error {
	if err := report.Write(dir, idx); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := report.GenerateHTML(dir, report.HTMLConfig{Title: "javagui-runner checks"}); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	if allure {
		if err := report.GenerateAllure(dir); err != nil {
			return fmt.Errorf("failed to write Allure results: %w", err)
		}
	}
	return nil
}

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check that check files parse, without running them",
	ArgsUsage: "<file-or-dir>...",
	Description: `Parses every check file, expands includes and validates every locator
and operator. All problems are reported, not just the first.

Examples:
  javagui-runner validate checks/
  javagui-runner validate --include-tags smoke checks/`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only list files with one of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip files with any of these tags",
		},
	},
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no check files given")
	}
	files, err := loadCheckFiles(c)
	if err != nil {
		return err
	}
	total := 0
	for _, f := range files {
		fmt.Fprintf(c.App.Writer, "  %s %s (%d checks)\n", colorize(c, colorGreen, "✓"), f.SourcePath, len(f.Checks))
		total += len(f.Checks)
	}
	fmt.Fprintf(c.App.Writer, "%d file(s), %d check(s)\n", len(files), total)
	return nil
}
