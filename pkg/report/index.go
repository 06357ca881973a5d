package report

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IndexFile is the name of the index inside a report directory.
const IndexFile = "report.json"

// Write stores idx as <outputDir>/report.json, creating the directory.
func Write(outputDir string, idx *Index) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	return atomicWriteJSON(filepath.Join(outputDir, IndexFile), idx)
}

// ReadReport loads the index from a report directory.
func ReadReport(reportDir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(reportDir, IndexFile))
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse %s: %w", IndexFile, err)
	}
	return &idx, nil
}

// atomicWriteJSON writes v to a temp file next to path and renames it into
// place, so readers never see a partial file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
