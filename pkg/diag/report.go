// Package diag builds structured, suggestion-enriched failure reports.
//
// A Report carries machine-readable fields (kind, locator, operator, expected,
// actual, elapsed, suggestions) and renders to a fixed-order text block so
// that golden-output tests stay stable.
package diag

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Context keys lifted into typed Report fields and rendered first, in this order.
const (
	KeyMessage    = "message"
	KeyLocator    = "locator"
	KeyProperty   = "property"
	KeyOperator   = "operator"
	KeyExpected   = "expected"
	KeyActual     = "actual"
	KeyError      = "error"
	KeyElapsed    = "elapsed"
	KeyAttempts   = "attempts"
	KeyCount      = "count"
	KeyGeneration = "generation"
	KeyRemoteID   = "remote_id"
	KeyPosition   = "position"
)

var orderedKeys = []string{
	KeyLocator,
	KeyProperty,
	KeyOperator,
	KeyExpected,
	KeyActual,
	KeyError,
	KeyElapsed,
	KeyAttempts,
	KeyCount,
	KeyGeneration,
	KeyRemoteID,
	KeyPosition,
}

// Suggestion is a near-miss element offered as "did you mean".
type Suggestion struct {
	Locator  string  `json:"locator" yaml:"locator"`   // Approximate locator that would match the element
	TypeName string  `json:"typeName" yaml:"typeName"` // Reported type of the element
	Score    float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Field is one rendered context entry.
type Field struct {
	Key   string
	Value string
}

// Report is a structured failure description.
type Report struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	Locator  string        `json:"locator,omitempty"`
	Property string        `json:"property,omitempty"`
	Operator string        `json:"operator,omitempty"`
	Expected interface{}   `json:"expected,omitempty"`
	Actual   interface{}   `json:"actual,omitempty"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`

	// Context holds every supplied context entry, including the lifted ones.
	Context map[string]interface{} `json:"context,omitempty"`

	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Related     []string     `json:"related,omitempty"`
}

// Build assembles a Report. It never panics: unknown value types are
// rendered with %v and nil inputs produce empty sections.
func Build(kind string, context map[string]interface{}, suggestions []Suggestion, related []string) *Report {
	r := &Report{
		Kind:    kind,
		Context: make(map[string]interface{}, len(context)),
	}
	for k, v := range context {
		if k == KeyMessage {
			r.Message = fmt.Sprint(v)
			continue
		}
		r.Context[k] = v
	}
	if r.Message == "" {
		r.Message = strings.ReplaceAll(kind, "_", " ")
	}

	if v, ok := r.Context[KeyLocator]; ok {
		r.Locator = fmt.Sprint(v)
	}
	if v, ok := r.Context[KeyProperty]; ok {
		r.Property = fmt.Sprint(v)
	}
	if v, ok := r.Context[KeyOperator]; ok {
		r.Operator = fmt.Sprint(v)
	}
	if v, ok := r.Context[KeyExpected]; ok {
		r.Expected = v
	}
	if v, ok := r.Context[KeyActual]; ok {
		r.Actual = v
	}
	if v, ok := r.Context[KeyElapsed].(time.Duration); ok {
		r.Elapsed = v
	}

	if len(suggestions) > 0 {
		r.Suggestions = append([]Suggestion(nil), suggestions...)
	}
	if len(related) > 0 {
		r.Related = append([]string(nil), related...)
	}
	return r
}

// Fields returns the context entries in rendering order: known keys first in
// their fixed order, then the remaining keys sorted.
func (r *Report) Fields() []Field {
	if r == nil {
		return nil
	}
	fields := make([]Field, 0, len(r.Context))
	seen := make(map[string]bool, len(orderedKeys))
	for _, k := range orderedKeys {
		seen[k] = true
		if v, ok := r.Context[k]; ok {
			fields = append(fields, Field{Key: k, Value: formatValue(k, v)})
		}
	}

	var rest []string
	for k := range r.Context {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fields = append(fields, Field{Key: k, Value: formatValue(k, r.Context[k])})
	}
	return fields
}

// String renders the report: message, context, suggestions, related.
func (r *Report) String() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(r.Kind)
	sb.WriteString(": ")
	sb.WriteString(r.Message)
	sb.WriteString("\n")

	if fields := r.Fields(); len(fields) > 0 {
		sb.WriteString("Context:\n")
		for _, f := range fields {
			fmt.Fprintf(&sb, "  %s: %s\n", f.Key, f.Value)
		}
	}

	if len(r.Suggestions) > 0 {
		sb.WriteString("Suggestions:\n")
		for _, s := range r.Suggestions {
			if s.TypeName != "" {
				fmt.Fprintf(&sb, "  - %s (%s)\n", s.Locator, s.TypeName)
			} else {
				fmt.Fprintf(&sb, "  - %s\n", s.Locator)
			}
		}
	}

	if len(r.Related) > 0 {
		sb.WriteString("Related:\n")
		for _, rel := range r.Related {
			fmt.Fprintf(&sb, "  - %s\n", rel)
		}
	}
	return sb.String()
}

func formatValue(key string, v interface{}) (out string) {
	// Stringer implementations on nil receivers may panic.
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("<%T>", v)
		}
	}()

	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if key == KeyExpected || key == KeyActual {
			return fmt.Sprintf("%q", val)
		}
		return val
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	case time.Duration:
		return val.String()
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
