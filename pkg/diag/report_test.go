package diag

import (
	"strings"
	"testing"
	"time"
)

func TestBuild_LiftsKnownFields(t *testing.T) {
	r := Build("assertion_timeout", map[string]interface{}{
		KeyMessage:  "text of JLabel#status never matched",
		KeyLocator:  "JLabel#status",
		KeyOperator: "==",
		KeyExpected: "ready",
		KeyActual:   "loading",
		KeyElapsed:  1500 * time.Millisecond,
	}, nil, nil)

	if r.Kind != "assertion_timeout" {
		t.Errorf("Kind = %q", r.Kind)
	}
	if r.Message != "text of JLabel#status never matched" {
		t.Errorf("Message = %q", r.Message)
	}
	if r.Locator != "JLabel#status" {
		t.Errorf("Locator = %q", r.Locator)
	}
	if r.Operator != "==" {
		t.Errorf("Operator = %q", r.Operator)
	}
	if r.Expected != "ready" || r.Actual != "loading" {
		t.Errorf("Expected/Actual = %v/%v", r.Expected, r.Actual)
	}
	if r.Elapsed != 1500*time.Millisecond {
		t.Errorf("Elapsed = %v", r.Elapsed)
	}
	if _, ok := r.Context[KeyMessage]; ok {
		t.Error("message should not be kept in Context")
	}
}

func TestBuild_DefaultMessage(t *testing.T) {
	r := Build("element_not_found", nil, nil, nil)
	if r.Message != "element not found" {
		t.Errorf("Message = %q, want %q", r.Message, "element not found")
	}
}

func TestReport_StringGolden(t *testing.T) {
	r := Build("element_not_found", map[string]interface{}{
		KeyMessage:    `no element matches "Button#submit"`,
		"zeta":        1,
		KeyGeneration: uint64(3),
		KeyLocator:    "Button#submit",
		"alpha":       "x",
	}, []Suggestion{
		{Locator: "JButton#submitBtn", TypeName: "javax.swing.JButton"},
		{Locator: "JButton#cancel"},
	}, []string{"submitBtn"})

	want := `element_not_found: no element matches "Button#submit"
Context:
  locator: Button#submit
  generation: 3
  alpha: x
  zeta: 1
Suggestions:
  - JButton#submitBtn (javax.swing.JButton)
  - JButton#cancel
Related:
  - submitBtn
`
	if got := r.String(); got != want {
		t.Errorf("String() mismatch\n got:\n%s\nwant:\n%s", got, want)
	}

	// Rendering is deterministic across calls.
	for i := 0; i < 5; i++ {
		if got := r.String(); got != want {
			t.Fatalf("render %d differs", i)
		}
	}
}

func TestReport_StringOmitsEmptySections(t *testing.T) {
	r := Build("stale_element", map[string]interface{}{}, nil, nil)
	got := r.String()
	if got != "stale_element: stale element\n" {
		t.Errorf("String() = %q", got)
	}
}

func TestReport_QuotesExpectedAndActual(t *testing.T) {
	r := Build("assertion_failed", map[string]interface{}{
		KeyExpected: "a b",
		KeyActual:   []string{"visible", "enabled"},
	}, nil, nil)
	got := r.String()
	if !strings.Contains(got, `expected: "a b"`) {
		t.Errorf("expected should be quoted: %s", got)
	}
	if !strings.Contains(got, "actual: [visible, enabled]") {
		t.Errorf("set should be bracketed: %s", got)
	}
}

type panicky struct{}

func (*panicky) String() string { panic("boom") }

func TestReport_NeverPanics(t *testing.T) {
	var p *panicky
	r := Build("x", map[string]interface{}{"value": p, "nil": nil}, nil, nil)
	got := r.String()
	if !strings.Contains(got, "nil: <nil>") {
		t.Errorf("nil value not rendered: %s", got)
	}
	if !strings.Contains(got, "value: <*diag.panicky>") {
		t.Errorf("panicking stringer not recovered: %s", got)
	}

	var nilReport *Report
	if nilReport.String() != "" || nilReport.Fields() != nil {
		t.Error("nil report should render empty")
	}
}
