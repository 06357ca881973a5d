package checks

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/javagui-runner/pkg/agent/mock"
	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/session"
	"github.com/devicelab-dev/javagui-runner/pkg/tree/treetest"
)

const loginChecks = `
name: login
timeout: 1s
checks:
  - name: type user
    locator: "#username"
    action: typeText
    args:
      text: alice
  - locator: "#statusLabel"
    property: text
    operator: equals
    expected: ready
  - locator: "#progress"
    property: value
    operator: ">="
    expected: 40
  - locator: "JFrame#main"
`

func TestParse_Mapping(t *testing.T) {
	f, err := Parse([]byte(loginChecks), "checks/login.yaml")
	require.NoError(t, err)

	assert.Equal(t, "login", f.Name)
	require.NotNil(t, f.Timeout)
	assert.Equal(t, time.Second, *f.Timeout)
	require.Len(t, f.Checks, 4)

	assert.Equal(t, KindAction, f.Checks[0].Kind())
	assert.Equal(t, "alice", f.Checks[0].Args["text"])
	assert.Equal(t, KindAssert, f.Checks[1].Kind())
	assert.Equal(t, 40, f.Checks[2].Expected)
	assert.Equal(t, KindExists, f.Checks[3].Kind())
	assert.Equal(t, "JFrame#main exists", f.Checks[3].Label())
	assert.Equal(t, 5, f.Checks[0].Line)
}

func TestParse_BareListTakesNameFromFile(t *testing.T) {
	f, err := Parse([]byte("- locator: '#submitBtn'\n  property: enabled\n  operator: '=='\n  expected: true\n  timeout: 0s\n"), "smoke.yml")
	require.NoError(t, err)
	assert.Equal(t, "smoke", f.Name)
	require.Len(t, f.Checks, 1)
	require.NotNil(t, f.Checks[0].Timeout)
	assert.Equal(t, time.Duration(0), *f.Checks[0].Timeout)
	assert.Equal(t, true, f.Checks[0].Expected)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		want    string
	}{
		{"empty", ``, 1, "empty check file"},
		{"scalar", `hello`, 1, "expected a list"},
		{"no checks", `name: x`, 1, "missing checks"},
		{"checks not list", "checks: 3", 1, "must be a list"},
		{"no locator", "- property: text\n  operator: '=='", 1, "no locator"},
		{"bad locator", "- locator: 'JButton['", 1, "invalid locator"},
		{"bad operator", "- locator: x\n  property: text\n  operator: roughly", 1, "unknown"},
		{"half assertion", "- locator: x\n  property: text", 1, "both property and operator"},
		{"action and assert", "- locator: x\n  action: click\n  operator: '=='", 1, "cannot also assert"},
		{"second item", "- locator: x\n- locator: ''", 2, "no locator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "c.yaml")
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %T", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, strings.ToLower(pe.Error()), tt.want)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.yaml")
	require.NoError(t, os.WriteFile(path, []byte(loginChecks), 0644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.SourcePath)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func newTarget(snaps ...*core.Snapshot) (*session.Session, *mock.Agent) {
	agent := mock.New(mock.Config{}, snaps...)
	s := session.New(agent, session.Options{
		Timeout:      time.Second,
		PollInterval: time.Millisecond,
	})
	return s, agent
}

func TestRunner_AllPass(t *testing.T) {
	f, err := Parse([]byte(loginChecks), "login.yaml")
	require.NoError(t, err)

	s, agent := newTarget(treetest.LoginSnapshot(), treetest.WithStatus("ready"))
	var seen []string
	r := NewRunner(s)
	r.OnCheckEnd = func(res core.CheckResult) { seen = append(seen, res.Name) }

	suite := r.Run(f)
	require.Len(t, suite.Checks, 4)
	assert.True(t, suite.Success(), "checks: %+v", suite.Checks)
	assert.Equal(t, 4, suite.PassedChecks)
	assert.NotEmpty(t, suite.RunID)
	assert.Equal(t, "type user", seen[0])

	assert.Equal(t, "ready", suite.Checks[1].Value)
	assert.Equal(t, float64(40), suite.Checks[2].Value)

	actions := agent.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "t1", actions[0].RemoteID)
}

func TestRunner_FailureAndErrorStatuses(t *testing.T) {
	content := `
- locator: "#statusLabel"
  property: text
  operator: "=="
  expected: ready
  timeout: 0s
  message: status never became ready
- locator: "#statusLabel"
  property: text
  operator: "<"
  expected: 3
- locator: "#submitBtn"
  action: click
`
	f, err := Parse([]byte(content), "mixed.yaml")
	require.NoError(t, err)

	s, _ := newTarget(treetest.LoginSnapshot())
	suite := NewRunner(s).Run(f)

	require.Len(t, suite.Checks, 3)
	failed := suite.Checks[0]
	assert.Equal(t, core.StatusFailed, failed.Status)
	assert.Equal(t, core.ErrCategoryAssertion, failed.Category)
	assert.Contains(t, failed.Error, "status never became ready")
	require.NotNil(t, failed.Diagnostics)
	assert.Equal(t, "loading", failed.Diagnostics.Actual)

	errored := suite.Checks[1]
	assert.Equal(t, core.StatusErrored, errored.Status)
	assert.Equal(t, core.ErrCategoryConfig, errored.Category)

	assert.Equal(t, core.StatusPassed, suite.Checks[2].Status)
	assert.Equal(t, core.StatusErrored, suite.AggregateStatus())
	assert.Equal(t, 1, suite.FailedChecks)
	assert.Equal(t, 1, suite.ErroredChecks)
}

func TestRunner_StopOnFailureSkipsRest(t *testing.T) {
	content := `
stopOnFailure: true
timeout: 0s
checks:
  - locator: "JDialog#confirm"
  - locator: "#submitBtn"
    action: click
  - locator: "#submitBtn"
    property: enabled
    operator: "=="
    expected: true
`
	f, err := Parse([]byte(content), "stop.yaml")
	require.NoError(t, err)

	s, agent := newTarget(treetest.LoginSnapshot())
	suite := NewRunner(s).Run(f)

	require.Len(t, suite.Checks, 3)
	assert.Equal(t, core.StatusFailed, suite.Checks[0].Status)
	assert.Equal(t, core.StatusSkipped, suite.Checks[1].Status)
	assert.Equal(t, core.StatusSkipped, suite.Checks[2].Status)
	assert.Equal(t, 2, suite.SkippedChecks)
	assert.Empty(t, agent.Actions())
}
