package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
	"github.com/devicelab-dev/javagui-runner/pkg/tree/treetest"
)

func ids(nodes []*tree.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.RemoteID)
	}
	return out
}

func TestResolve(t *testing.T) {
	m := treetest.Login()

	tests := []struct {
		name    string
		locator string
		want    []string
	}{
		{"type suffix match", "JButton", []string{"b1", "b2", "b3"}},
		{"fully qualified type", "javax.swing.JButton", []string{"b1", "b2", "b3"}},
		{"trailing segment", "Button", []string{"b1", "b2", "b3"}},
		{"identity", "#submitBtn", []string{"b1"}},
		{"child combinator", "JPanel#form > JButton", []string{"b1", "b2"}},
		{"child of window only", "JFrame > JButton", []string{"b3"}},
		{"state", "JButton:enabled", []string{"b1", "b2"}},
		{"negated state alias", "JButton:disabled", []string{"b3"}},
		{"state as attribute", "JButton[enabled=false]", []string{"b3"}},
		{"state presence", "JButton[enabled]", []string{"b1", "b2"}},
		{"numeric ordering", "JLabel[width>100]", []string{"l3"}},
		{"ordering on non-number", "JLabel[text>1]", nil},
		{"missing attribute satisfies not-equal", "JLabel[width!=120]", []string{"l1", "l2"}},
		{"missing attribute fails equal", "JLabel[width=120]", []string{"l3"}},
		{"nth", "JButton:nth(1)", []string{"b2"}},
		{"last", "JButton:last", []string{"b3"}},
		{"index out of range", "JButton:nth(5)", nil},
		{"index over union of contexts", "JPanel JLabel:first", []string{"l1"}},
		{"descendants deduplicated", "* JLabel", []string{"l1", "l2", "l3"}},
		{"xpath", "//JPanel[@name='status']/JLabel", []string{"l3"}},
		{"xpath child of root", "/JFrame/JButton", []string{"b3"}},
		{"xpath root has only windows", "/JButton", nil},
		{"xpath position", "//JPanel/JLabel[2]", []string{"l2"}},
		{"path", "JTree#files >> path[Root/src/main.go]", []string{"n3"}},
		{"path first label anywhere", "JTree >> path[src/main.go]", []string{"n3"}},
		{"path later labels are children", "JTree >> path[Root/main.go]", nil},
		{"prefix text", "text:Submit", []string{"b1"}},
		{"prefix index", "index:0", []string{"w1"}},
		{"no match", "JTable", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := locator.Parse(tt.locator)
			require.NoError(t, err)
			r := Resolve(sel, m, nil)
			if tt.want == nil {
				assert.Empty(t, r.Nodes)
			} else {
				assert.Equal(t, tt.want, ids(r.Nodes))
			}
			assert.Equal(t, m.Generation, r.Generation)
			assert.Same(t, sel, r.Selector)
		})
	}
}

func TestResolve_Scope(t *testing.T) {
	m := treetest.Login()
	form, _ := m.Lookup("p1")
	frame, _ := m.Lookup("w1")

	r := Resolve(locator.MustParse("JButton"), m, form)
	assert.Equal(t, []string{"b1", "b2"}, ids(r.Nodes))

	r = Resolve(locator.MustParse("JFrame"), m, frame)
	assert.Empty(t, r.Nodes, "scope must never be a candidate")

	r = Resolve(locator.MustParse("JButton"), m, frame)
	assert.Len(t, r.Nodes, 3)
}

func TestResolve_Deterministic(t *testing.T) {
	m := treetest.Login()
	for _, loc := range []string{"JButton", "* JLabel", "JPanel JLabel:first", "//JButton[last()]"} {
		sel := locator.MustParse(loc)
		a := Resolve(sel, m, nil)
		b := Resolve(sel, m, nil)
		assert.Equal(t, ids(a.Nodes), ids(b.Nodes), loc)
	}
}

func TestResolve_DocumentOrder(t *testing.T) {
	m := treetest.Login()
	r := Resolve(locator.MustParse("*"), m, nil)
	require.Len(t, r.Nodes, m.Len())
	for i := 1; i < len(r.Nodes); i++ {
		assert.Less(t, r.Nodes[i-1].ID, r.Nodes[i].ID)
	}
}

func TestResolveOne(t *testing.T) {
	m := treetest.Login()

	n, err := ResolveOne(locator.MustParse("JButton#submitBtn"), m, nil)
	require.NoError(t, err)
	assert.Equal(t, "b1", n.RemoteID)

	_, err = ResolveOne(locator.MustParse("JButton"), m, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMultipleElementsFound))
	rep := core.ReportOf(err)
	require.NotNil(t, rep)
	assert.Equal(t, 3, rep.Context["count"])
	assert.Equal(t, []string{"JButton#submitBtn", "JButton#cancelBtn", "JButton#helpBtn"}, rep.Related)
}

func TestResolveOne_NotFoundSuggestsNearMiss(t *testing.T) {
	m := treetest.Login()

	_, err := ResolveOne(locator.MustParse("Button#submit"), m, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrElementNotFound))
	assert.True(t, core.IsRetryable(err))

	rep := core.ReportOf(err)
	require.NotNil(t, rep)
	assert.Equal(t, "Button#submit", rep.Locator)
	require.NotEmpty(t, rep.Suggestions)
	assert.LessOrEqual(t, len(rep.Suggestions), DefaultSuggestionLimit)
	assert.Equal(t, "JButton#submitBtn", rep.Suggestions[0].Locator)
	assert.Equal(t, "javax.swing.JButton", rep.Suggestions[0].TypeName)
	assert.InDelta(t, 1-3.0/9.0, rep.Suggestions[0].Score, 1e-9)
	assert.Contains(t, rep.Related, "submitBtn")
	assert.Contains(t, rep.String(), "JButton#submitBtn")
}

func TestResolveOne_CardinalityInvariant(t *testing.T) {
	m := treetest.Login()
	locators := []string{
		"JButton", "JButton#submitBtn", "JTable", "JLabel:last", "JPanel",
		"JTree >> path[Root/docs]", "JCheckBox:not(checked)",
	}
	for _, loc := range locators {
		sel := locator.MustParse(loc)
		all := Resolve(sel, m, nil)
		one, err := ResolveOne(sel, m, nil)
		switch all.Len() {
		case 1:
			require.NoError(t, err, loc)
			assert.Same(t, all.Nodes[0], one, loc)
		case 0:
			assert.True(t, errors.Is(err, core.ErrElementNotFound), loc)
		default:
			assert.True(t, errors.Is(err, core.ErrMultipleElementsFound), loc)
		}
	}
}

func TestAttrMatches_Operators(t *testing.T) {
	m := treetest.Login()
	pb, _ := m.Lookup("pb")

	tests := []struct {
		ac   locator.AttrConstraint
		want bool
	}{
		{locator.AttrConstraint{Key: "value", Op: locator.OpGe, Value: "40"}, true},
		{locator.AttrConstraint{Key: "value", Op: locator.OpGt, Value: "40"}, false},
		{locator.AttrConstraint{Key: "value", Op: locator.OpLt, Value: "40.5"}, true},
		{locator.AttrConstraint{Key: "value", Op: locator.OpLe, Value: "39"}, false},
		{locator.AttrConstraint{Key: "missing", Op: locator.OpLt, Value: "1"}, false},
		{locator.AttrConstraint{Key: "maximum", Op: locator.OpExists}, true},
		{locator.AttrConstraint{Key: "visible", Op: locator.OpEq, Value: "true"}, true},
		{locator.AttrConstraint{Key: "checked", Op: locator.OpNe, Value: "true"}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AttrMatches(pb, tt.ac), "%+v", tt.ac)
	}
}
