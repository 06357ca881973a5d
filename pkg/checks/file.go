// Package checks parses YAML check files and runs them against a session.
//
// A check file is either a bare list of checks or a mapping with settings:
//
//	name: login screen
//	timeout: 5s
//	stopOnFailure: true
//	checks:
//	  - locator: "#username"
//	    action: typeText
//	    args: {text: alice}
//	  - locator: "#statusLabel"
//	    property: text
//	    operator: "=="
//	    expected: ready
//	  - locator: "JDialog#confirm"   # no property: wait until it exists
//	  - include: common/logout.yaml  # spliced in by Validator
package checks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/javagui-runner/pkg/assertion"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
)

// Kind classifies what a check does.
type Kind int

const (
	KindAssert Kind = iota // read property and compare
	KindAction             // resolve and perform an action
	KindExists             // wait until the locator matches
	KindInclude            // splice in the checks of another file
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindExists:
		return "exists"
	case KindInclude:
		return "include"
	default:
		return "assert"
	}
}

// Check is one entry of a check file.
type Check struct {
	Name     string                 `yaml:"name"`
	Locator  string                 `yaml:"locator"`
	Property string                 `yaml:"property"`
	Operator string                 `yaml:"operator"`
	Expected interface{}            `yaml:"expected"`
	Timeout  *time.Duration         `yaml:"timeout"` // nil means the file or session default
	Message  string                 `yaml:"message"`
	Action   string                 `yaml:"action"`
	Args     map[string]interface{} `yaml:"args"`
	Include  string                 `yaml:"include"` // path relative to the including file

	Line int `yaml:"-"` // 1-based line in the source file
}

// Kind reports what the check does.
func (c *Check) Kind() Kind {
	switch {
	case c.Include != "":
		return KindInclude
	case c.Action != "":
		return KindAction
	case c.Property == "" && c.Operator == "":
		return KindExists
	default:
		return KindAssert
	}
}

// Label returns the check name, falling back to a description of it.
func (c *Check) Label() string {
	if c.Name != "" {
		return c.Name
	}
	switch c.Kind() {
	case KindInclude:
		return "include " + c.Include
	case KindAction:
		return fmt.Sprintf("%s %s", c.Action, c.Locator)
	case KindExists:
		return fmt.Sprintf("%s exists", c.Locator)
	default:
		return fmt.Sprintf("%s %s %s %v", c.Locator, c.Property, c.Operator, c.Expected)
	}
}

// File is a parsed check file.
type File struct {
	Name          string         `yaml:"name"`
	Timeout       *time.Duration `yaml:"timeout"`
	StopOnFailure bool           `yaml:"stopOnFailure"`
	Tags          []string       `yaml:"tags"`
	Checks        []Check        `yaml:"checks"`

	SourcePath string `yaml:"-"`
}

// header is File without the checks, which are decoded one by one.
type header struct {
	Name          string         `yaml:"name"`
	Timeout       *time.Duration `yaml:"timeout"`
	StopOnFailure bool           `yaml:"stopOnFailure"`
	Tags          []string       `yaml:"tags"`
}

// ParseError represents a check file error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile reads and parses a check file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided check file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses check file content. Locators and operators are validated up
// front so a typo fails the file before anything runs.
func Parse(data []byte, sourcePath string) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty check file"}
	}

	root := doc.Content[0]
	f := &File{SourcePath: sourcePath}
	var items *yaml.Node

	switch root.Kind {
	case yaml.SequenceNode:
		items = root
	case yaml.MappingNode:
		var h header
		if err := root.Decode(&h); err != nil {
			return nil, &ParseError{Path: sourcePath, Line: root.Line, Message: err.Error()}
		}
		f.Name, f.Timeout, f.StopOnFailure, f.Tags = h.Name, h.Timeout, h.StopOnFailure, h.Tags
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "checks" {
				items = root.Content[i+1]
			}
		}
		if items == nil {
			return nil, &ParseError{Path: sourcePath, Line: root.Line, Message: "missing checks list"}
		}
	default:
		return nil, &ParseError{Path: sourcePath, Line: root.Line, Message: "expected a list of checks"}
	}

	if items.Kind != yaml.SequenceNode {
		return nil, &ParseError{Path: sourcePath, Line: items.Line, Message: "checks must be a list"}
	}
	for _, item := range items.Content {
		var c Check
		if err := item.Decode(&c); err != nil {
			return nil, &ParseError{Path: sourcePath, Line: item.Line, Message: err.Error()}
		}
		c.Line = item.Line
		if err := validate(&c); err != nil {
			return nil, &ParseError{Path: sourcePath, Line: item.Line, Message: err.Error()}
		}
		f.Checks = append(f.Checks, c)
	}

	if f.Name == "" && sourcePath != "" {
		f.Name = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	}
	return f, nil
}

func validate(c *Check) error {
	if c.Include != "" {
		if c.Locator != "" || c.Property != "" || c.Operator != "" || c.Action != "" {
			return fmt.Errorf("include cannot be combined with a locator, action or assertion")
		}
		return nil
	}
	if c.Locator == "" {
		return fmt.Errorf("check has no locator")
	}
	if _, err := locator.Cached(c.Locator); err != nil {
		return err
	}
	if c.Timeout != nil && *c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	switch c.Kind() {
	case KindAction:
		if c.Property != "" || c.Operator != "" {
			return fmt.Errorf("action %q cannot also assert", c.Action)
		}
	case KindAssert:
		if c.Property == "" || c.Operator == "" {
			return fmt.Errorf("assertion needs both property and operator")
		}
		op, err := assertion.ParseOperator(c.Operator)
		if err != nil {
			return err
		}
		if err := assertion.Check(op, c.Expected); err != nil {
			return err
		}
	}
	return nil
}
