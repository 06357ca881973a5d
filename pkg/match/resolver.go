// Package match resolves locator selectors against a tree model.
//
// Resolution walks the selector step by step. Each step takes the union of
// the children (Child) or descendants (Descendant) of the previous step's
// matches, keeps the nodes that satisfy every constraint, then applies the
// index constraint to the filtered set. Results are always in document order.
package match

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

// Result is the ordered set of nodes a selector matched in one generation.
type Result struct {
	Selector   *locator.Selector
	Nodes      []*tree.Node
	Generation uint64
}

// Len returns the number of matched nodes.
func (r *Result) Len() int {
	return len(r.Nodes)
}

// Resolve returns every node matching sel below scope. A nil scope means the
// model root. The scope itself is never part of the result.
func Resolve(sel *locator.Selector, m *tree.Model, scope *tree.Node) *Result {
	if scope == nil {
		scope = m.Root()
	}
	current := []*tree.Node{scope}
	for i := range sel.Steps {
		current = applyStep(m, current, &sel.Steps[i])
		if len(current) == 0 {
			break
		}
	}
	return &Result{Selector: sel, Nodes: current, Generation: m.Generation}
}

// ResolveOne returns the single node matching sel. Zero matches yield
// core.ErrElementNotFound with near-miss suggestions attached; more than one
// yields core.ErrMultipleElementsFound.
func ResolveOne(sel *locator.Selector, m *tree.Model, scope *tree.Node) (*tree.Node, error) {
	r := Resolve(sel, m, scope)
	switch len(r.Nodes) {
	case 1:
		return r.Nodes[0], nil
	case 0:
		return nil, NotFoundError(sel, m, scope)
	default:
		msg := fmt.Sprintf("%d elements match %q", len(r.Nodes), sel.Source)
		ctx := map[string]interface{}{
			diag.KeyMessage:    msg,
			diag.KeyLocator:    sel.Source,
			diag.KeyCount:      len(r.Nodes),
			diag.KeyGeneration: m.Generation,
		}
		var related []string
		for i, n := range r.Nodes {
			if i == DefaultSuggestionLimit {
				break
			}
			related = append(related, ApproximateLocator(n))
		}
		return nil, core.ErrMultipleElementsFound.
			WithMessage(msg).
			WithDetails(ctx).
			WithReport(diag.Build(core.CodeMultipleElements, ctx, nil, related))
	}
}

// NotFoundError builds the element_not_found error for sel, including
// suggestions and similarly named components.
func NotFoundError(sel *locator.Selector, m *tree.Model, scope *tree.Node) error {
	msg := fmt.Sprintf("no element matches %q", sel.Source)
	ctx := map[string]interface{}{
		diag.KeyMessage:    msg,
		diag.KeyLocator:    sel.Source,
		diag.KeyGeneration: m.Generation,
	}
	suggestions := Suggest(sel, m, scope, DefaultSuggestionLimit)
	related := SimilarNames(wantedName(sel), m, DefaultRelatedLimit)
	return core.ErrElementNotFound.
		WithMessage(msg).
		WithDetails(ctx).
		WithReport(diag.Build(core.CodeElementNotFound, ctx, suggestions, related))
}

func applyStep(m *tree.Model, contexts []*tree.Node, step *locator.Step) []*tree.Node {
	if step.IsPath() {
		return resolvePath(m, contexts, step.Path)
	}
	var filtered []*tree.Node
	for _, n := range candidates(m, contexts, step.Combinator) {
		if Matches(n, step) {
			filtered = append(filtered, n)
		}
	}
	if step.Index != nil {
		i := step.Index.Pick(len(filtered))
		if i < 0 {
			return nil
		}
		return []*tree.Node{filtered[i]}
	}
	return filtered
}

// candidates returns the union of the children or descendants of contexts,
// deduplicated and in document order.
func candidates(m *tree.Model, contexts []*tree.Node, comb locator.Combinator) []*tree.Node {
	marked := make([]bool, m.Len()+1)
	count := 0
	mark := func(id int) {
		if !marked[id] {
			marked[id] = true
			count++
		}
	}
	for _, c := range contexts {
		if comb == locator.Child {
			for _, id := range c.Children {
				mark(id)
			}
			continue
		}
		for id := c.ID + 1; id < c.End; id++ {
			mark(id)
		}
	}

	out := make([]*tree.Node, 0, count)
	for id, ok := range marked {
		if ok {
			out = append(out, m.Node(id))
		}
	}
	return out
}

func resolvePath(m *tree.Model, contexts []*tree.Node, labels []string) []*tree.Node {
	current := contexts
	for i, label := range labels {
		comb := locator.Child
		if i == 0 {
			comb = locator.Descendant
		}
		var next []*tree.Node
		for _, n := range candidates(m, current, comb) {
			if tree.Label(n) == label {
				next = append(next, n)
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Matches reports whether n satisfies every non-index constraint of step.
func Matches(n *tree.Node, step *locator.Step) bool {
	if !TypeMatches(n.TypeName, step.Type) {
		return false
	}
	if step.Identity != "" && n.Name() != step.Identity {
		return false
	}
	for _, ac := range step.Attrs {
		if !AttrMatches(n, ac) {
			return false
		}
	}
	for _, sc := range step.States {
		if !StateMatches(n, sc) {
			return false
		}
	}
	return true
}

// TypeMatches reports whether the reported type name satisfies want: an
// exact or trailing match, so Button matches javax.swing.JButton.
func TypeMatches(typeName, want string) bool {
	return want == "" || strings.HasSuffix(typeName, want)
}

// AttrMatches evaluates one attribute constraint. A missing attribute fails
// Eq and satisfies Ne. A key that is not an attribute but names a state
// compares as "true" or "false". Ordering operators need both sides to be
// numbers and are unsatisfied otherwise.
func AttrMatches(n *tree.Node, ac locator.AttrConstraint) bool {
	v, ok := n.Attrs[ac.Key]
	if !ok && locator.IsKnownState(ac.Key) {
		has := n.States.Has(ac.Key)
		if ac.Op == locator.OpExists {
			return has
		}
		v, ok = strconv.FormatBool(has), true
	}

	switch ac.Op {
	case locator.OpExists:
		return ok
	case locator.OpEq:
		return ok && v == ac.Value
	case locator.OpNe:
		return !ok || v != ac.Value
	}

	if !ok {
		return false
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(v), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(ac.Value), 64)
	if errA != nil || errB != nil {
		return false
	}
	switch ac.Op {
	case locator.OpGt:
		return a > b
	case locator.OpLt:
		return a < b
	case locator.OpGe:
		return a >= b
	case locator.OpLe:
		return a <= b
	}
	return false
}

// StateMatches evaluates one pseudo-class.
func StateMatches(n *tree.Node, sc locator.StateConstraint) bool {
	return n.States.Has(string(sc.State)) != sc.Negated
}
