// Package assertion implements the comparison operators and the retry loop
// that polls a value until an operator is satisfied or a timeout expires.
package assertion

import (
	"strings"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// Operator is a normalized comparison operator.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not contains"
	OpMatches      Operator = "matches"
	OpNotMatches   Operator = "not matches"
	OpStartsWith   Operator = "starts with"
	OpEndsWith     Operator = "ends with"
)

var aliases = map[string]Operator{
	"==":        OpEqual,
	"equal":     OpEqual,
	"equals":    OpEqual,
	"should be": OpEqual,

	"!=":            OpNotEqual,
	"inequal":       OpNotEqual,
	"not equal":     OpNotEqual,
	"should not be": OpNotEqual,

	"<":            OpLess,
	"less than":    OpLess,
	"<=":           OpLessEqual,
	">":            OpGreater,
	"greater than": OpGreater,
	">=":           OpGreaterEqual,

	"contains":     OpContains,
	"*=":           OpContains,
	"not contains": OpNotContains,

	"matches":     OpMatches,
	"regex":       OpMatches,
	"not matches": OpNotMatches,

	"starts with":       OpStartsWith,
	"^=":                OpStartsWith,
	"should start with": OpStartsWith,

	"ends with":       OpEndsWith,
	"$=":              OpEndsWith,
	"should end with": OpEndsWith,
}

// ParseOperator normalizes an operator spelling. Matching ignores case and
// collapses runs of whitespace.
func ParseOperator(s string) (Operator, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if op, ok := aliases[key]; ok {
		return op, nil
	}
	return "", core.ErrUnknownOperator.
		WithMessagef("unknown assertion operator %q", s).
		WithDetails(map[string]interface{}{diag.KeyOperator: s})
}

func (o Operator) String() string {
	return string(o)
}

// IsOrdering reports whether the operator needs numeric operands.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// IsKnown reports whether o is one of the canonical operators. Spellings
// must go through ParseOperator first.
func (o Operator) IsKnown() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpContains, OpNotContains, OpMatches, OpNotMatches, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}
