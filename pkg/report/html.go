package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath string // Path to write the HTML file (default: <reportDir>/report.html)
	Title      string // Report title (default: "Check Report")
}

// GenerateHTML renders report.json in reportDir as a single HTML page.
func GenerateHTML(reportDir string, cfg HTMLConfig) error {
	index, err := ReadReport(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	if cfg.Title == "" {
		cfg.Title = "Check Report"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(reportDir, "report.html")
	}

	html, err := renderHTML(buildHTMLData(index, cfg))
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Index         *Index
	Suites        []SuiteHTMLData
	TotalDuration string
	PassRate      float64
}

// SuiteHTMLData contains suite data formatted for HTML.
type SuiteHTMLData struct {
	SuiteEntry
	DurationStr string
	Checks      []CheckHTMLData
}

// CheckHTMLData contains check data formatted for HTML.
type CheckHTMLData struct {
	CheckEntry
	DurationStr string
	Report      string
}

func buildHTMLData(index *Index, cfg HTMLConfig) HTMLData {
	data := HTMLData{
		Title:         cfg.Title,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Index:         index,
		TotalDuration: formatDuration(index.EndTime.Sub(index.StartTime).Milliseconds()),
	}
	if index.Summary.Total > 0 {
		data.PassRate = float64(index.Summary.Passed) * 100 / float64(index.Summary.Total)
	}

	for _, s := range index.Suites {
		sd := SuiteHTMLData{SuiteEntry: s, DurationStr: formatDuration(s.Duration)}
		for _, c := range s.Checks {
			cd := CheckHTMLData{CheckEntry: c, DurationStr: formatDuration(c.Duration)}
			if c.Diagnostics != nil {
				cd.Report = c.Diagnostics.String()
			}
			sd.Checks = append(sd.Checks, cd)
		}
		data.Suites = append(data.Suites, sd)
	}
	return data
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg: #ffffff;
            --bg-alt: #f9fafb;
            --text: #111827;
            --muted: #6b7280;
            --border: #e5e7eb;
            --passed: #22c55e;
            --failed: #ef4444;
            --errored: #f97316;
            --skipped: #eab308;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; color: var(--text); background: var(--bg-alt); padding: 24px; }
        h1 { font-size: 22px; margin-bottom: 4px; }
        .meta { color: var(--muted); font-size: 13px; margin-bottom: 20px; }
        .summary { display: flex; gap: 12px; margin-bottom: 24px; }
        .card { background: var(--bg); border: 1px solid var(--border); border-radius: 8px; padding: 12px 16px; min-width: 110px; }
        .card .n { font-size: 22px; font-weight: 600; }
        .card .l { color: var(--muted); font-size: 12px; text-transform: uppercase; }
        .suite { background: var(--bg); border: 1px solid var(--border); border-radius: 8px; margin-bottom: 16px; }
        .suite > header { display: flex; justify-content: space-between; padding: 12px 16px; border-bottom: 1px solid var(--border); }
        .suite .file { color: var(--muted); font-size: 12px; }
        table { width: 100%; border-collapse: collapse; font-size: 14px; }
        td { padding: 8px 16px; border-bottom: 1px solid var(--border); vertical-align: top; }
        td.dur { text-align: right; color: var(--muted); white-space: nowrap; }
        code { font-size: 12px; color: var(--muted); }
        pre { margin-top: 6px; padding: 8px; background: var(--bg-alt); border-radius: 4px; font-size: 12px; white-space: pre-wrap; }
        .badge { display: inline-block; padding: 2px 8px; border-radius: 10px; font-size: 12px; color: #fff; }
        .passed { background: var(--passed); }
        .failed { background: var(--failed); }
        .errored { background: var(--errored); }
        .skipped { background: var(--skipped); }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="meta">
        Run {{.Index.RunID}} &middot; {{.GeneratedAt}} &middot; {{.TotalDuration}}
        {{if .Index.Runner.Agent}}&middot; agent {{.Index.Runner.Agent}}{{end}}
        {{if .Index.Runner.Version}}&middot; javagui-runner {{.Index.Runner.Version}}{{end}}
    </div>

    <div class="summary">
        <div class="card"><div class="n">{{.Index.Summary.Total}}</div><div class="l">checks</div></div>
        <div class="card"><div class="n">{{.Index.Summary.Passed}}</div><div class="l">passed</div></div>
        <div class="card"><div class="n">{{.Index.Summary.Failed}}</div><div class="l">failed</div></div>
        <div class="card"><div class="n">{{.Index.Summary.Errored}}</div><div class="l">errored</div></div>
        <div class="card"><div class="n">{{.Index.Summary.Skipped}}</div><div class="l">skipped</div></div>
        <div class="card"><div class="n">{{printf "%.0f" .PassRate}}%</div><div class="l">pass rate</div></div>
    </div>

    {{range .Suites}}
    <section class="suite">
        <header>
            <div>
                <strong>{{.Name}}</strong>
                <div class="file">{{.SourceFile}}</div>
            </div>
            <div><span class="badge {{.Status}}">{{.Status}}</span> {{.DurationStr}}</div>
        </header>
        <table>
            {{range .Checks}}
            <tr>
                <td><span class="badge {{.Status}}">{{.Status}}</span></td>
                <td>
                    {{.Name}}<br><code>{{.Locator}}</code>
                    {{if .Error}}<pre>{{if .Report}}{{.Report}}{{else}}{{.Error}}{{end}}</pre>{{end}}
                </td>
                <td class="dur">{{.DurationStr}}</td>
            </tr>
            {{end}}
        </table>
    </section>
    {{end}}
</body>
</html>
`
