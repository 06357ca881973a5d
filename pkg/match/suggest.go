package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/devicelab-dev/javagui-runner/pkg/diag"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

const (
	DefaultSuggestionLimit = 3
	DefaultRelatedLimit    = 5

	// minSimilarity is the lowest edit-distance similarity that still counts
	// as a look-alike name.
	minSimilarity = 0.5
)

// Suggest returns near-miss candidates for a selector that matched nothing.
//
// It finds the first step whose candidate set comes up empty and relaxes that
// step one constraint at a time, in the order identity, attributes,
// pseudo-classes, index, type. Nodes found this way are ranked by how many of
// the step's constraints they satisfy, then by document order. If no single
// relaxation finds anything, constraints are dropped cumulatively in the same
// order.
func Suggest(sel *locator.Selector, m *tree.Model, scope *tree.Node, limit int) []diag.Suggestion {
	if scope == nil {
		scope = m.Root()
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	contexts := []*tree.Node{scope}
	for i := range sel.Steps {
		step := &sel.Steps[i]
		next := applyStep(m, contexts, step)
		if len(next) > 0 {
			contexts = next
			continue
		}
		prefix := (&locator.Selector{Steps: sel.Steps[:i]}).String()
		if step.IsPath() {
			return suggestPath(m, contexts, prefix, step.Path, limit)
		}
		return suggestStep(m, contexts, prefix, step, limit)
	}
	return nil
}

func suggestStep(m *tree.Model, contexts []*tree.Node, prefix string, step *locator.Step, limit int) []diag.Suggestion {
	seen := make(map[int]bool)
	var nodes []*tree.Node
	collect := func(relaxed locator.Step) {
		for _, n := range applyStep(m, contexts, &relaxed) {
			if !seen[n.ID] {
				seen[n.ID] = true
				nodes = append(nodes, n)
			}
		}
	}

	for _, r := range relaxations(step) {
		collect(r)
	}
	if len(nodes) == 0 {
		for _, r := range cumulativeRelaxations(step) {
			collect(r)
			if len(nodes) > 0 {
				break
			}
		}
	}
	if len(nodes) == 0 && step.Identity != "" {
		nodes = lookAlikes(candidates(m, contexts, step.Combinator), step.Identity)
	}

	sort.SliceStable(nodes, func(a, b int) bool {
		sa, sb := satisfied(nodes[a], step), satisfied(nodes[b], step)
		if sa != sb {
			return sa > sb
		}
		return nodes[a].ID < nodes[b].ID
	})
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}

	want, field := wantedValue(step)
	out := make([]diag.Suggestion, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, diag.Suggestion{
			Locator:  joinLocator(prefix, step.Combinator, ApproximateLocator(n)),
			TypeName: n.TypeName,
			Score:    Similarity(want, n.Attrs[field]),
		})
	}
	return out
}

func suggestPath(m *tree.Model, contexts []*tree.Node, prefix string, labels []string, limit int) []diag.Suggestion {
	current := contexts
	matched := 0
	for i := range labels {
		var next []*tree.Node
		if i == 0 {
			next = resolvePath(m, current, labels[:1])
		} else {
			next = childrenLabeled(m, current, labels[i])
		}
		if len(next) == 0 {
			break
		}
		current, matched = next, i+1
	}

	if matched == len(labels) {
		return nil
	}
	comb := locator.Child
	if matched == 0 {
		comb = locator.Descendant
	}
	want := labels[matched]
	var nodes []*tree.Node
	for _, n := range candidates(m, current, comb) {
		if tree.Label(n) != "" {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(a, b int) bool {
		return Similarity(want, tree.Label(nodes[a])) > Similarity(want, tree.Label(nodes[b]))
	})
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}

	out := make([]diag.Suggestion, 0, len(nodes))
	for _, n := range nodes {
		path := append(append([]string{}, labels[:matched]...), tree.Label(n))
		loc := ">> path[" + strings.Join(path, "/") + "]"
		if prefix != "" {
			loc = prefix + " " + loc
		}
		out = append(out, diag.Suggestion{
			Locator:  loc,
			TypeName: n.TypeName,
			Score:    Similarity(want, tree.Label(n)),
		})
	}
	return out
}

func childrenLabeled(m *tree.Model, parents []*tree.Node, label string) []*tree.Node {
	var out []*tree.Node
	for _, n := range candidates(m, parents, locator.Child) {
		if tree.Label(n) == label {
			out = append(out, n)
		}
	}
	return out
}

// relaxations returns one copy of step per constraint, each with that single
// constraint removed. Copies left with nothing but an index are skipped.
func relaxations(step *locator.Step) []locator.Step {
	var out []locator.Step
	add := func(r locator.Step) {
		if filters(&r) > 0 {
			out = append(out, r)
		}
	}

	if step.Identity != "" {
		r := *step
		r.Identity = ""
		add(r)
	}
	for i := range step.Attrs {
		r := *step
		r.Attrs = without(step.Attrs, i)
		add(r)
	}
	for i := range step.States {
		r := *step
		r.States = without(step.States, i)
		add(r)
	}
	if step.Index != nil {
		r := *step
		r.Index = nil
		add(r)
	}
	if step.Type != "" {
		r := *step
		r.Type = ""
		add(r)
	}
	return out
}

func cumulativeRelaxations(step *locator.Step) []locator.Step {
	var out []locator.Step
	r := *step
	for _, drop := range []func(*locator.Step){
		func(s *locator.Step) { s.Identity = "" },
		func(s *locator.Step) { s.Attrs = nil },
		func(s *locator.Step) { s.States = nil },
		func(s *locator.Step) { s.Index = nil },
	} {
		drop(&r)
		if filters(&r) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// filters counts the constraints of step other than its index.
func filters(step *locator.Step) int {
	n := step.ConstraintCount()
	if step.Index != nil {
		n--
	}
	return n
}

func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// satisfied counts the non-index constraints of step that n meets.
func satisfied(n *tree.Node, step *locator.Step) int {
	count := 0
	if step.Type != "" && TypeMatches(n.TypeName, step.Type) {
		count++
	}
	if step.Identity != "" && n.Name() == step.Identity {
		count++
	}
	for _, ac := range step.Attrs {
		if AttrMatches(n, ac) {
			count++
		}
	}
	for _, sc := range step.States {
		if StateMatches(n, sc) {
			count++
		}
	}
	return count
}

func lookAlikes(nodes []*tree.Node, identity string) []*tree.Node {
	var out []*tree.Node
	for _, n := range nodes {
		name := n.Name()
		if name == "" {
			continue
		}
		if fuzzy.MatchFold(identity, name) || Similarity(identity, name) >= minSimilarity {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return Similarity(identity, out[a].Name()) > Similarity(identity, out[b].Name())
	})
	return out
}

// wantedValue returns the value a step asked for and the attribute it should
// be compared with when scoring suggestions.
func wantedValue(step *locator.Step) (string, string) {
	if step.Identity != "" {
		return step.Identity, "name"
	}
	for _, ac := range step.Attrs {
		if ac.Op == locator.OpEq && (ac.Key == "text" || ac.Key == "name") {
			return ac.Value, ac.Key
		}
	}
	return "", "name"
}

func wantedName(sel *locator.Selector) string {
	for i := len(sel.Steps) - 1; i >= 0; i-- {
		st := &sel.Steps[i]
		if st.Identity != "" {
			return st.Identity
		}
		for _, ac := range st.Attrs {
			if ac.Key == "name" && ac.Op == locator.OpEq {
				return ac.Value
			}
		}
	}
	return ""
}

func joinLocator(prefix string, comb locator.Combinator, step string) string {
	if prefix == "" {
		if comb == locator.Child {
			return "> " + step
		}
		return step
	}
	if comb == locator.Child {
		return prefix + " > " + step
	}
	return prefix + " " + step
}

// ApproximateLocator renders a locator that identifies n by simple type plus
// name, or plus text when the node has no name.
func ApproximateLocator(n *tree.Node) string {
	st := locator.Step{Type: n.SimpleType()}
	if name := n.Name(); name != "" {
		st.Identity = name
	} else if text := n.Text(); text != "" {
		st.Attrs = []locator.AttrConstraint{{Key: "text", Op: locator.OpEq, Value: text}}
	}
	return st.String()
}

// SimilarNames returns component names in m that resemble query: fuzzy
// subsequence matches first (closest first), then names within edit distance.
func SimilarNames(query string, m *tree.Model, limit int) []string {
	if query == "" {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	for _, n := range m.Nodes() {
		if name := n.Name(); name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	ranks := fuzzy.RankFindFold(query, names)
	sort.SliceStable(ranks, func(a, b int) bool {
		if ranks[a].Distance != ranks[b].Distance {
			return ranks[a].Distance < ranks[b].Distance
		}
		return ranks[a].OriginalIndex < ranks[b].OriginalIndex
	})

	var out []string
	picked := map[string]bool{query: true}
	for _, r := range ranks {
		if !picked[r.Target] {
			picked[r.Target] = true
			out = append(out, r.Target)
		}
	}
	for _, name := range names {
		if !picked[name] && Similarity(query, name) >= minSimilarity {
			picked[name] = true
			out = append(out, name)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Similarity is 1 minus the case-insensitive Levenshtein distance divided by
// the longer length. Empty inputs score 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	s := 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(longest)
	if s < 0 {
		return 0
	}
	return s
}
