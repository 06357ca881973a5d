package locator

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
)

func nth(n int) *IndexConstraint { return &IndexConstraint{Kind: IndexNth, N: n} }

func TestParse_CSS(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Step
	}{
		{
			name:  "type only",
			input: "JButton",
			want:  []Step{{Type: "JButton"}},
		},
		{
			name:  "type with identity",
			input: "JButton#submitBtn",
			want:  []Step{{Type: "JButton", Identity: "submitBtn"}},
		},
		{
			name:  "bare identity",
			input: "#login-form.main",
			want:  []Step{{Identity: "login-form.main"}},
		},
		{
			name:  "wildcard",
			input: "*",
			want:  []Step{{}},
		},
		{
			name:  "qualified type",
			input: "javax.swing.JButton",
			want:  []Step{{Type: "javax.swing.JButton"}},
		},
		{
			name:  "attributes",
			input: "JButton[text='Save as', @enabled, width>=100]",
			want: []Step{{
				Type: "JButton",
				Attrs: []AttrConstraint{
					{Key: "text", Op: OpEq, Value: "Save as"},
					{Key: "enabled", Op: OpExists},
					{Key: "width", Op: OpGe, Value: "100"},
				},
			}},
		},
		{
			name:  "unquoted and escaped values",
			input: `JLabel[text=OK][tooltip!="say \"hi\""]`,
			want: []Step{{
				Type: "JLabel",
				Attrs: []AttrConstraint{
					{Key: "text", Op: OpEq, Value: "OK"},
					{Key: "tooltip", Op: OpNe, Value: `say "hi"`},
				},
			}},
		},
		{
			name:  "states and aliases",
			input: "JCheckBox:visible:not(checked):disabled:hidden",
			want: []Step{{
				Type: "JCheckBox",
				States: []StateConstraint{
					{State: StateVisible},
					{State: StateChecked, Negated: true},
					{State: StateEnabled, Negated: true},
					{State: StateVisible, Negated: true},
				},
			}},
		},
		{
			name:  "not of alias is positive",
			input: "JButton:not(disabled)",
			want:  []Step{{Type: "JButton", States: []StateConstraint{{State: StateEnabled}}}},
		},
		{
			name:  "index forms",
			input: "JButton:first JLabel:last JTextField:nth(2) JList:index( 0 )",
			want: []Step{
				{Type: "JButton", Index: &IndexConstraint{Kind: IndexFirst}},
				{Type: "JLabel", Index: &IndexConstraint{Kind: IndexLast}},
				{Type: "JTextField", Index: nth(2)},
				{Type: "JList", Index: nth(0)},
			},
		},
		{
			name:  "combinators",
			input: "JFrame > JPanel#form   JButton >> JLabel",
			want: []Step{
				{Type: "JFrame"},
				{Combinator: Child, Type: "JPanel", Identity: "form"},
				{Type: "JButton"},
				{Type: "JLabel"},
			},
		},
		{
			name:  "child without spaces",
			input: "JPanel>JButton",
			want:  []Step{{Type: "JPanel"}, {Combinator: Child, Type: "JButton"}},
		},
		{
			name:  "tree path",
			input: "JTree#files >> path[ Root / src/main.go ]",
			want: []Step{
				{Type: "JTree", Identity: "files"},
				{Path: []string{"Root", "src", "main.go"}},
			},
		},
		{
			name:  "surrounding whitespace",
			input: "  \tJButton  \n",
			want:  []Step{{Type: "JButton"}},
		},
		{
			name:  "SWT Text stays CSS",
			input: "Text:enabled",
			want:  []Step{{Type: "Text", States: []StateConstraint{{State: StateEnabled}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if sel.XPath {
				t.Error("XPath = true, want false")
			}
			if diff := cmp.Diff(tt.want, sel.Steps); diff != "" {
				t.Errorf("Parse(%q) steps mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParse_XPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Step
	}{
		{
			name:  "descendant then child",
			input: "//JPanel/JButton",
			want: []Step{
				{Combinator: Descendant, Type: "JPanel"},
				{Combinator: Child, Type: "JButton"},
			},
		},
		{
			name:  "position predicate is one based",
			input: "//JButton[1]",
			want:  []Step{{Type: "JButton", Index: nth(0)}},
		},
		{
			name:  "last predicate",
			input: "//JButton[last()]",
			want:  []Step{{Type: "JButton", Index: &IndexConstraint{Kind: IndexLast}}},
		},
		{
			name:  "conditions joined by and",
			input: `//JButton[@name='ok' and @width > 10 and @enabled]`,
			want: []Step{{
				Type: "JButton",
				Attrs: []AttrConstraint{
					{Key: "name", Op: OpEq, Value: "ok"},
					{Key: "width", Op: OpGt, Value: "10"},
					{Key: "enabled", Op: OpExists},
				},
			}},
		},
		{
			name:  "text function and wildcard",
			input: `/*//*[text()="Save"][2]`,
			want: []Step{
				{Combinator: Child},
				{Type: "", Attrs: []AttrConstraint{{Key: "text", Op: OpEq, Value: "Save"}}, Index: nth(1)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if !sel.XPath {
				t.Error("XPath = false, want true")
			}
			if diff := cmp.Diff(tt.want, sel.Steps); diff != "" {
				t.Errorf("Parse(%q) steps mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParse_Prefix(t *testing.T) {
	tests := []struct {
		input string
		want  Step
	}{
		{"name:okButton", Step{Identity: "okButton"}},
		{"id:ok", Step{Identity: "ok"}},
		{"text:Save all", Step{Attrs: []AttrConstraint{{Key: "text", Op: OpEq, Value: "Save all"}}}},
		{"class:javax.swing.JTable", Step{Type: "javax.swing.JTable"}},
		{"index:3", Step{Index: nth(3)}},
		{"name: padded ", Step{Identity: "padded"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if diff := cmp.Diff([]Step{tt.want}, sel.Steps); diff != "" {
				t.Errorf("steps mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		position int
		contains string
	}{
		{"empty", "", 0, "empty"},
		{"blank", "   ", 0, "empty"},
		{"unterminated bracket", "JButton[text='a'", 16, "unterminated"},
		{"unterminated string", "JButton[text='abc", 13, "unterminated string"},
		{"missing attribute name", "JButton[=a]", 8, "attribute name"},
		{"unknown pseudo", "JButton:bogus", 8, "unknown pseudo-class"},
		{"unknown state in not", "JButton:not(shiny)", 12, "unknown state"},
		{"two indexes", "JButton:first:last", 13, "more than one index"},
		{"negative nth", "JButton:nth(-1)", 12, "non-negative"},
		{"two identities", "JButton#a#b", 9, "more than one identity"},
		{"empty identity", "JButton#", 8, "identity"},
		{"dangling child", "JPanel >", 8, "expected a step"},
		{"lone child", ">", 1, "expected a step"},
		{"leading descendant", ">> JButton", 0, "unexpected character"},
		{"trailing garbage", "JButton)", 7, "unexpected character"},
		{"path with suffix", "JTree >> path[a/b]:visible", 18, "path step"},
		{"path followed by step", "JTree >> path[a] JLabel", 17, "path step"},
		{"empty path label", "JTree >> path[a//b]", 16, "empty path label"},
		{"unterminated path", "JTree >> path[a/b", 17, "unterminated path"},
		{"xpath zero position", "//JButton[0]", 10, "start at 1"},
		{"xpath bad node test", "//[1]", 2, "node test"},
		{"xpath bad value", "//JButton[@text=abc]", 16, "quoted string"},
		{"xpath missing close", "//JButton[@a", 12, "unterminated"},
		{"prefix without value", "name:", 5, "expected a value"},
		{"prefix bad index", "index:x", 6, "non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.input, sel)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if pe.Position != tt.position {
				t.Errorf("Position = %d, want %d (%s)", pe.Position, tt.position, pe.Message)
			}
			if pe.Position < 0 || pe.Position > len(tt.input) {
				t.Errorf("Position %d out of range [0, %d]", pe.Position, len(tt.input))
			}
			if !strings.Contains(pe.Message, tt.contains) {
				t.Errorf("Message = %q, want substring %q", pe.Message, tt.contains)
			}
			if !errors.Is(err, core.ErrParse) {
				t.Error("errors.Is(err, core.ErrParse) = false")
			}
		})
	}
}

func TestParseError_CaretCountsRunes(t *testing.T) {
	tests := []struct {
		name string
		err  ParseError
		want string
	}{
		{"after accented type", ParseError{Input: "JBütton:bogus", Position: 8}, "JBütton:bogus\n       ^"},
		{"inside cjk text", ParseError{Input: "[text='確認']x", Position: 15}, "[text='確認']x\n           ^"},
		{"past the end", ParseError{Input: "é", Position: 10}, "é\n ^"},
		{"negative", ParseError{Input: "é", Position: -1}, "é\n^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Caret(); got != tt.want {
				t.Errorf("Caret() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}

	_, err := Parse("JButton[text='é']:bogus")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	if want := "JButton[text='é']:bogus\n                 ^"; pe.Caret() != want {
		t.Errorf("Caret() =\n%s\nwant\n%s", pe.Caret(), want)
	}
}

func TestParse_Deterministic(t *testing.T) {
	inputs := []string{
		"JFrame > JPanel#form JButton[text='OK']:enabled:first",
		"//JPanel[@name='form']/JButton[2]",
		"name:okButton",
		"JButton[text=",
	}
	for _, in := range inputs {
		a, errA := Parse(in)
		b, errB := Parse(in)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("Parse(%q) not deterministic:\n%s", in, diff)
		}
		if (errA == nil) != (errB == nil) || (errA != nil && errA.Error() != errB.Error()) {
			t.Errorf("Parse(%q) errors differ: %v vs %v", in, errA, errB)
		}
	}
}

func TestParseError_Caret(t *testing.T) {
	_, err := Parse("JButton:bogus")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	want := "JButton:bogus\n        ^"
	if got := pe.Caret(); got != want {
		t.Errorf("Caret() =\n%s\nwant\n%s", got, want)
	}
	if core.CategoryOf(err) != core.ErrCategoryLocator {
		t.Errorf("CategoryOf = %v, want locator", core.CategoryOf(err))
	}
	if core.IsRetryable(err) {
		t.Error("parse errors must not be retryable")
	}
}

func TestSelector_String(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"JButton#submitBtn", "JButton#submitBtn"},
		{"JFrame>JPanel   JButton", "JFrame > JPanel JButton"},
		{"JButton[@text=\"Save as\",enabled]", "JButton[text='Save as', enabled]"},
		{":visible", "*:visible"},
		{"JButton:disabled:index(3)", "JButton:not(enabled):nth(3)"},
		{"name:my button", "[name='my button']"},
		{"JTree >> path[a / b]", "JTree >> path[a/b]"},
		{"//JPanel/JButton[1]", "JPanel > JButton:nth(0)"},
		{"/JFrame/JPanel", "> JFrame > JPanel"},
		{">JFrame", "> JFrame"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MustParse(tt.input).String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelector_StringRoundTrip(t *testing.T) {
	inputs := []string{
		"JFrame > JPanel#form JButton[text='OK', width>=10]:enabled:first",
		"*:not(visible):last",
		"JTree#files >> path[Root/src]",
		"/JFrame/JPanel/JButton[@name='submit']",
		"/JFrame//JButton[last()]",
		"//JTable[@name='orders']/JTableHeader",
		"> JFrame > JPanel",
	}
	for _, in := range inputs {
		first := MustParse(in)
		second := MustParse(first.String())
		if diff := cmp.Diff(first.Steps, second.Steps); diff != "" {
			t.Errorf("round trip of %q changed steps:\n%s", in, diff)
		}
	}
}

func TestParse_LeadingChild(t *testing.T) {
	css := MustParse("> JFrame > JPanel")
	xpath := MustParse("/JFrame/JPanel")
	if diff := cmp.Diff(xpath.Steps, css.Steps); diff != "" {
		t.Errorf("leading > differs from absolute path:\n%s", diff)
	}
	if css.Steps[0].Combinator != Child {
		t.Errorf("first combinator = %v, want Child", css.Steps[0].Combinator)
	}
}

func TestSelector_Clone(t *testing.T) {
	orig := MustParse("JButton[text=a]:first")
	c := orig.Clone()
	c.Steps[0].Attrs[0].Value = "b"
	c.Steps[0].Index.Kind = IndexLast
	if orig.Steps[0].Attrs[0].Value != "a" || orig.Steps[0].Index.Kind != IndexFirst {
		t.Error("Clone shares state with the original")
	}
}

func TestIndexConstraint_Pick(t *testing.T) {
	tests := []struct {
		ic   IndexConstraint
		n    int
		want int
	}{
		{IndexConstraint{Kind: IndexFirst}, 3, 0},
		{IndexConstraint{Kind: IndexLast}, 3, 2},
		{IndexConstraint{Kind: IndexNth, N: 1}, 3, 1},
		{IndexConstraint{Kind: IndexNth, N: 3}, 3, -1},
		{IndexConstraint{Kind: IndexFirst}, 0, -1},
	}
	for _, tt := range tests {
		if got := tt.ic.Pick(tt.n); got != tt.want {
			t.Errorf("%+v.Pick(%d) = %d, want %d", tt.ic, tt.n, got, tt.want)
		}
	}
}
