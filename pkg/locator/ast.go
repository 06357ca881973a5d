// Package locator parses locator strings into Selector ASTs.
//
// Three surface forms compile to the same AST:
//
//	JPanel#form > JButton[text='OK']:enabled   CSS form
//	//JPanel[@name='form']/JButton[1]          XPath form
//	name:okButton                              prefix form
//
// Parsing is pure; a given string always yields the same Selector, so
// results may be memoized by source string (see Cache).
package locator

import (
	"strconv"
	"strings"
)

// Combinator joins a step to the one before it (or to the scope for the first step).
type Combinator int

const (
	Descendant Combinator = iota // whitespace or >>
	Child                        // >
)

// String returns the string representation of Combinator
func (c Combinator) String() string {
	if c == Child {
		return "child"
	}
	return "descendant"
}

// MarshalYAML renders the combinator by name in AST dumps.
func (c Combinator) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Op is an attribute comparison operator.
type Op int

const (
	OpExists Op = iota // [attr]
	OpEq               // =
	OpNe               // !=
	OpGt               // >
	OpLt               // <
	OpGe               // >=
	OpLe               // <=
)

// String returns the operator as written in a locator.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGe:
		return ">="
	case OpLe:
		return "<="
	default:
		return ""
	}
}

// MarshalYAML renders the operator as written; OpExists becomes "exists".
func (o Op) MarshalYAML() (interface{}, error) {
	if o == OpExists {
		return "exists", nil
	}
	return o.String(), nil
}

// IsOrdering reports whether the operator compares numerically.
func (o Op) IsOrdering() bool {
	return o == OpGt || o == OpLt || o == OpGe || o == OpLe
}

// State is a pseudo-class state name.
type State string

// Recognized states
const (
	StateVisible  State = "visible"
	StateEnabled  State = "enabled"
	StateChecked  State = "checked"
	StateSelected State = "selected"
	StateExpanded State = "expanded"
	StateFocused  State = "focused"
	StateEditable State = "editable"
	StateAttached State = "attached"
)

// KnownStates lists every state in canonical order.
var KnownStates = []State{
	StateVisible,
	StateEnabled,
	StateChecked,
	StateSelected,
	StateExpanded,
	StateFocused,
	StateEditable,
	StateAttached,
}

// IsKnownState reports whether s names a recognized state.
func IsKnownState(s string) bool {
	for _, st := range KnownStates {
		if string(st) == s {
			return true
		}
	}
	return false
}

// AttrConstraint is one [key op value] condition.
type AttrConstraint struct {
	Key   string `yaml:"key"`
	Op    Op     `yaml:"op"`
	Value string `yaml:"value,omitempty"`
}

// StateConstraint is one :state or :not(state) condition.
type StateConstraint struct {
	State   State `yaml:"state"`
	Negated bool  `yaml:"negated,omitempty"`
}

// IndexKind selects how an index constraint picks from the candidates.
type IndexKind int

const (
	IndexNth IndexKind = iota
	IndexFirst
	IndexLast
)

func (k IndexKind) String() string {
	switch k {
	case IndexFirst:
		return "first"
	case IndexLast:
		return "last"
	default:
		return "nth"
	}
}

func (k IndexKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// IndexConstraint picks one candidate after filtering. N is zero-based.
type IndexConstraint struct {
	Kind IndexKind `yaml:"kind"`
	N    int       `yaml:"n,omitempty"`
}

// Pick returns the chosen position in a candidate list of length n,
// or -1 if the constraint selects nothing.
func (ic IndexConstraint) Pick(n int) int {
	if n == 0 {
		return -1
	}
	switch ic.Kind {
	case IndexFirst:
		return 0
	case IndexLast:
		return n - 1
	default:
		if ic.N < 0 || ic.N >= n {
			return -1
		}
		return ic.N
	}
}

// Step is one compound selector.
type Step struct {
	Combinator Combinator        `yaml:"combinator"`
	Type       string            `yaml:"type,omitempty"`     // "" matches any type
	Identity   string            `yaml:"identity,omitempty"` // matches the name attribute
	Attrs      []AttrConstraint  `yaml:"attrs,omitempty"`
	States     []StateConstraint `yaml:"states,omitempty"`
	Index      *IndexConstraint  `yaml:"index,omitempty"`
	Path       []string          `yaml:"path,omitempty"` // tree-node labels; exclusive with everything else
}

// IsPath reports whether the step is a tree-node path step.
func (s *Step) IsPath() bool {
	return len(s.Path) > 0
}

// ConstraintCount returns the number of filtering constraints in the step,
// counting the type name, identity, each attribute, each state and the index.
func (s *Step) ConstraintCount() int {
	n := len(s.Attrs) + len(s.States)
	if s.Type != "" {
		n++
	}
	if s.Identity != "" {
		n++
	}
	if s.Index != nil {
		n++
	}
	return n
}

// Selector is a parsed locator. Values returned by Parse and Cache are
// shared and must not be modified.
type Selector struct {
	Source string `yaml:"source"`
	Steps  []Step `yaml:"steps"`
	XPath  bool   `yaml:"xpath,omitempty"`
}

// Last returns the final step.
func (s *Selector) Last() *Step {
	if len(s.Steps) == 0 {
		return nil
	}
	return &s.Steps[len(s.Steps)-1]
}

// Clone returns a deep copy that may be modified freely.
func (s *Selector) Clone() *Selector {
	c := &Selector{Source: s.Source, XPath: s.XPath, Steps: make([]Step, len(s.Steps))}
	for i, st := range s.Steps {
		c.Steps[i] = st.clone()
	}
	return c
}

func (s Step) clone() Step {
	c := s
	c.Attrs = append([]AttrConstraint(nil), s.Attrs...)
	c.States = append([]StateConstraint(nil), s.States...)
	c.Path = append([]string(nil), s.Path...)
	if s.Index != nil {
		idx := *s.Index
		c.Index = &idx
	}
	return c
}

// String renders the selector in canonical CSS form.
func (s *Selector) String() string {
	var sb strings.Builder
	for i := range s.Steps {
		st := &s.Steps[i]
		switch {
		case st.IsPath():
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(">> path[")
			sb.WriteString(strings.Join(st.Path, "/"))
			sb.WriteString("]")
			continue
		case i == 0 && st.Combinator == Child:
			sb.WriteString("> ")
		case i > 0 && st.Combinator == Child:
			sb.WriteString(" > ")
		case i > 0:
			sb.WriteString(" ")
		}
		sb.WriteString(st.String())
	}
	return sb.String()
}

// String renders a single step in canonical CSS form.
func (s *Step) String() string {
	if s.IsPath() {
		return "path[" + strings.Join(s.Path, "/") + "]"
	}
	var sb strings.Builder
	sb.WriteString(s.Type)

	var attrs []AttrConstraint
	if s.Identity != "" {
		if isIdentityWord(s.Identity) {
			sb.WriteString("#")
			sb.WriteString(s.Identity)
		} else {
			attrs = append(attrs, AttrConstraint{Key: "name", Op: OpEq, Value: s.Identity})
		}
	}
	attrs = append(attrs, s.Attrs...)
	if len(attrs) > 0 {
		sb.WriteString("[")
		for i, a := range attrs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.Key)
			if a.Op != OpExists {
				sb.WriteString(a.Op.String())
				sb.WriteString(quoteValue(a.Value))
			}
		}
		sb.WriteString("]")
	}

	for _, st := range s.States {
		if st.Negated {
			sb.WriteString(":not(" + string(st.State) + ")")
		} else {
			sb.WriteString(":" + string(st.State))
		}
	}

	if s.Index != nil {
		switch s.Index.Kind {
		case IndexFirst:
			sb.WriteString(":first")
		case IndexLast:
			sb.WriteString(":last")
		default:
			sb.WriteString(":nth(" + strconv.Itoa(s.Index.N) + ")")
		}
	}

	if sb.Len() == 0 {
		return "*"
	}
	if s.Type == "" && sb.String()[0] == ':' {
		return "*" + sb.String()
	}
	return sb.String()
}

func isIdentityWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentityChar(s[i]) {
			return false
		}
	}
	return true
}

func quoteValue(v string) string {
	if v != "" && isUnquotedValue(v) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func isUnquotedValue(v string) bool {
	for i := 0; i < len(v); i++ {
		switch c := v[i]; {
		case c == ',' || c == ']' || c == '\'' || c == '"' || c == '\\':
			return false
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			return false
		}
	}
	return true
}
