package mock

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadSnapshot reads a snapshot file. Files ending in .json are decoded as
// JSON, anything else as YAML. The document may be an object with a roots
// list or a bare list of top-level nodes.
func LoadSnapshot(path string) (*core.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	snap, err := ParseSnapshot(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// ParseSnapshot decodes snapshot data in the given format ("json" or "yaml").
func ParseSnapshot(data []byte, format string) (*core.Snapshot, error) {
	var snap core.Snapshot
	switch format {
	case "json":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &snap.Roots); err != nil {
				return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
			}
			return &snap, nil
		}
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
		}
	case "yaml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot YAML: %w", err)
		}
		if len(doc.Content) == 0 {
			return &snap, nil
		}
		root := doc.Content[0]
		var err error
		if root.Kind == yaml.SequenceNode {
			err = root.Decode(&snap.Roots)
		} else {
			err = root.Decode(&snap)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	return &snap, nil
}

// SaveSnapshot writes snap to path, as JSON for .json files and YAML otherwise.
func SaveSnapshot(path string, snap *core.Snapshot) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = yaml.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
