package checks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ValidationError is a problem found while loading check files.
type ValidationError struct {
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files are the check files to run, in order, with includes expanded.
	Files []*File
	// Errors contains every problem found, not just the first.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Err joins all errors into one, or returns nil.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Validator loads check files up front: it parses every file, expands
// include entries and applies tag filters.
type Validator struct {
	includeTags []string
	excludeTags []string
}

// NewValidator creates a validator. A file runs if it has one of
// includeTags (when given) and none of excludeTags.
func NewValidator(includeTags, excludeTags []string) *Validator {
	return &Validator{includeTags: includeTags, excludeTags: excludeTags}
}

// loader holds the state of one Validate call.
type loader struct {
	result   *Result
	loaded   map[string]*File
	included map[string]bool
}

// Validate loads the given files and directories. A directory contributes
// its top-level .yaml/.yml files in name order, except files that another
// file includes; those are fragments, not suites.
func (v *Validator) Validate(paths ...string) *Result {
	l := &loader{
		result:   &Result{},
		loaded:   make(map[string]*File),
		included: make(map[string]bool),
	}

	type candidate struct {
		path    string
		fromDir bool
	}
	var candidates []candidate
	seen := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			l.fail(p, fmt.Sprintf("cannot access: %v", err))
			continue
		}
		files := []string{p}
		if info.IsDir() {
			if files, err = collectCheckFiles(p); err != nil {
				l.fail(p, fmt.Sprintf("failed to scan directory: %v", err))
				continue
			}
		}
		for _, f := range files {
			f = filepath.Clean(f)
			if !seen[f] {
				seen[f] = true
				candidates = append(candidates, candidate{path: f, fromDir: info.IsDir()})
			}
		}
	}

	for _, c := range candidates {
		l.load(c.path, nil)
	}

	for _, c := range candidates {
		f := l.loaded[c.path]
		if f == nil || (c.fromDir && l.included[c.path]) {
			continue
		}
		if !ShouldInclude(f, v.includeTags, v.excludeTags) {
			continue
		}
		l.result.Files = append(l.result.Files, f)
	}
	return l.result
}

func (l *loader) fail(file, msg string) {
	l.result.Errors = append(l.result.Errors, &ValidationError{File: file, Message: msg})
}

// load parses path and expands its includes. It returns nil if the file or
// one of its includes could not be loaded.
func (l *loader) load(path string, chain []string) *File {
	for _, ancestor := range chain {
		if ancestor == path {
			cycle := append(append([]string(nil), chain...), path)
			l.fail(path, fmt.Sprintf("circular include: %s", strings.Join(cycle, " -> ")))
			return nil
		}
	}
	if f, ok := l.loaded[path]; ok {
		return f
	}

	f, err := ParseFile(path)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			l.result.Errors = append(l.result.Errors, pe)
		} else {
			l.fail(path, err.Error())
		}
		l.loaded[path] = nil
		return nil
	}

	expanded := make([]Check, 0, len(f.Checks))
	next := append(append([]string(nil), chain...), path)
	ok := true
	for _, c := range f.Checks {
		if c.Kind() != KindInclude {
			expanded = append(expanded, c)
			continue
		}
		ref := resolveFilePath(filepath.Dir(path), c.Include)
		l.included[ref] = true
		sub := l.load(ref, next)
		if sub == nil {
			ok = false
			continue
		}
		expanded = append(expanded, sub.Checks...)
	}
	if !ok {
		l.loaded[path] = nil
		return nil
	}

	f.Checks = expanded
	l.loaded[path] = f
	return f
}

// ShouldInclude checks if a file matches tag filters.
func ShouldInclude(f *File, includeTags, excludeTags []string) bool {
	if len(includeTags) > 0 && !hasAnyTag(f.Tags, includeTags) {
		return false
	}
	return !hasAnyTag(f.Tags, excludeTags)
}

func hasAnyTag(tags, want []string) bool {
	for _, tag := range tags {
		for _, w := range want {
			if tag == w {
				return true
			}
		}
	}
	return false
}

// collectCheckFiles finds the .yaml/.yml files directly inside dir.
func collectCheckFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// resolveFilePath resolves a file path relative to a base directory.
func resolveFilePath(baseDir, filePath string) string {
	if filepath.IsAbs(filePath) {
		return filepath.Clean(filePath)
	}
	return filepath.Join(baseDir, filePath)
}
