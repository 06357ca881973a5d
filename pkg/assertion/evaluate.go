package assertion

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// matchTimeout bounds a single regular expression evaluation.
const matchTimeout = time.Second

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
	kindSet
)

func (k valueKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindBool:
		return "boolean"
	case kindSet:
		return "set"
	default:
		return "string"
	}
}

// value is an operand normalized to one of four kinds. All Go integer and
// float types become float64.
type value struct {
	kind valueKind
	s    string
	n    float64
	b    bool
	set  []string
}

func (v value) text() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.b)
	case kindSet:
		return strings.Join(v.set, ",")
	default:
		return v.s
	}
}

// number reads a string as a number. Only equality uses it; ordering
// takes numbers by type.
func (v value) number() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.n, true
	case kindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	}
	return 0, false
}

func (v value) members() []string {
	if v.kind == kindSet {
		return v.set
	}
	var out []string
	for _, part := range strings.Split(v.text(), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toValue(x interface{}) (value, bool) {
	switch t := x.(type) {
	case string:
		return value{kind: kindString, s: t}, true
	case bool:
		return value{kind: kindBool, b: t}, true
	case []string:
		return value{kind: kindSet, set: t}, true
	case []interface{}:
		set := make([]string, 0, len(t))
		for _, item := range t {
			iv, ok := toValue(item)
			if !ok || iv.kind == kindSet {
				return value{}, false
			}
			set = append(set, iv.text())
		}
		return value{kind: kindSet, set: set}, true
	case fmt.Stringer:
		return value{kind: kindString, s: t.String()}, true
	}
	if f, ok := toFloat(x); ok {
		return value{kind: kindNumber, n: f}, true
	}
	return value{}, false
}

func toFloat(x interface{}) (float64, bool) {
	switch n := x.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Check reports the configuration errors that do not depend on the observed
// value: an unknown operator, an expected value of a kind the operator cannot
// take, or a pattern that does not compile. Ordering needs a number,
// contains a string or a set, starts/ends with a string or number, and
// matches a string pattern.
func Check(op Operator, expected interface{}) error {
	if !op.IsKnown() {
		return unknownOperator(op)
	}
	e, ok := toValue(expected)
	if !ok {
		return unsupported(op, nil, expected, fmt.Sprintf("%T", expected))
	}
	switch {
	case op.IsOrdering():
		if e.kind != kindNumber {
			return unsupported(op, nil, expected, e.kind.String())
		}
	case op == OpContains || op == OpNotContains:
		if e.kind == kindBool || e.kind == kindNumber {
			return unsupported(op, nil, expected, e.kind.String())
		}
	case op == OpStartsWith || op == OpEndsWith:
		if e.kind == kindBool || e.kind == kindSet {
			return unsupported(op, nil, expected, e.kind.String())
		}
	case op == OpMatches || op == OpNotMatches:
		if e.kind != kindString {
			return unsupported(op, nil, expected, e.kind.String())
		}
		if _, err := compile(e.s); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate applies op to actual and expected. It first runs Check.
//
// Equality coerces the expected value to the actual value's kind where it
// can: "40" equals 40 and "true" equals true, and a comma-separated string
// equals a set with the same members. Sets compare without regard to order.
// Ordering needs both sides to be numbers by type; numeric-looking strings
// are not converted. contains works on strings (substring) and sets
// (membership). Patterns use .NET/Python syntax with search semantics.
func Evaluate(op Operator, actual, expected interface{}) (bool, error) {
	if err := Check(op, expected); err != nil {
		return false, err
	}
	a, ok := toValue(actual)
	if !ok {
		return false, unsupported(op, actual, expected, fmt.Sprintf("%T", actual))
	}
	e, _ := toValue(expected)

	switch op {
	case OpEqual:
		return equal(a, e), nil
	case OpNotEqual:
		return !equal(a, e), nil

	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		if a.kind != kindNumber {
			return false, unsupported(op, actual, expected, a.kind.String())
		}
		x, y := a.n, e.n
		switch op {
		case OpLess:
			return x < y, nil
		case OpLessEqual:
			return x <= y, nil
		case OpGreater:
			return x > y, nil
		default:
			return x >= y, nil
		}

	case OpContains, OpNotContains:
		var found bool
		switch a.kind {
		case kindString:
			if e.kind == kindSet {
				return false, unsupported(op, actual, expected, e.kind.String())
			}
			found = strings.Contains(a.s, e.s)
		case kindSet:
			found = containsAll(a.set, e.members())
		default:
			return false, unsupported(op, actual, expected, a.kind.String())
		}
		return found == (op == OpContains), nil

	case OpStartsWith, OpEndsWith:
		if a.kind != kindString {
			return false, unsupported(op, actual, expected, a.kind.String())
		}
		if op == OpStartsWith {
			return strings.HasPrefix(a.s, e.text()), nil
		}
		return strings.HasSuffix(a.s, e.text()), nil

	case OpMatches, OpNotMatches:
		if a.kind == kindSet {
			return false, unsupported(op, actual, expected, a.kind.String())
		}
		re, err := compile(e.text())
		if err != nil {
			return false, err
		}
		matched, err := re.MatchString(a.text())
		if err != nil {
			return false, core.ErrInvalidConfig.
				WithMessagef("pattern %q could not be evaluated", e.text()).
				WithCause(err)
		}
		return matched == (op == OpMatches), nil
	}

	return false, unknownOperator(op)
}

func unknownOperator(op Operator) error {
	return core.ErrUnknownOperator.
		WithMessagef("unknown assertion operator %q", string(op)).
		WithDetails(map[string]interface{}{diag.KeyOperator: string(op)})
}

func equal(a, e value) bool {
	switch a.kind {
	case kindNumber:
		y, ok := e.number()
		return ok && a.n == y
	case kindBool:
		if e.kind == kindBool {
			return a.b == e.b
		}
		b, err := strconv.ParseBool(strings.TrimSpace(e.text()))
		return err == nil && a.b == b
	case kindSet:
		return sameMembers(a.set, e.members())
	default:
		if e.kind == kindSet {
			return sameMembers(a.members(), e.set)
		}
		return a.s == e.text()
	}
}

func sameMembers(a, b []string) bool {
	x := dedupeSorted(a)
	y := dedupeSorted(b)
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func dedupeSorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i == 0 || s != out[n-1] {
			out[n] = s
			n++
		}
	}
	return out[:n]
}

func containsAll(set, want []string) bool {
	if len(want) == 0 {
		return false
	}
	for _, w := range want {
		found := false
		for _, s := range set {
			if s == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// unsupported builds an unsupported_comparison error. actual is nil when
// the problem is already visible in the expected value.
func unsupported(op Operator, actual, expected interface{}, kind string) error {
	details := map[string]interface{}{
		diag.KeyOperator: string(op),
		diag.KeyExpected: expected,
	}
	if actual != nil {
		details[diag.KeyActual] = actual
	}
	return core.ErrUnsupportedComparison.
		WithMessagef("operator %q does not support %s values", string(op), kind).
		WithDetails(details)
}

var patterns sync.Map // string -> *regexp2.Regexp

func compile(pattern string) (*regexp2.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, core.ErrInvalidConfig.
			WithMessagef("invalid pattern %q", pattern).
			WithCause(err).
			WithDetails(map[string]interface{}{diag.KeyExpected: pattern})
	}
	re.MatchTimeout = matchTimeout
	patterns.Store(pattern, re)
	return re, nil
}
