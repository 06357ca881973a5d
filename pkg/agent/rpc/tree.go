package rpc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
)

// stateFields are boolean component properties reported as states.
// "visible" is only used when the agent omits "showing", since a visible
// component inside a hidden parent is not on screen.
var stateFields = map[string]bool{
	"showing":  true,
	"enabled":  true,
	"editable": true,
	"selected": true,
	"focused":  true,
	"expanded": true,
	"checked":  true,
}

// structural keys consumed by the converter itself.
var skipFields = map[string]bool{
	"id":       true,
	"class":    true,
	"name":     true,
	"text":     true,
	"children": true,
}

// toggleTypes report "selected" for their checked state.
var toggleTypes = []string{"CheckBox", "RadioButton", "ToggleButton", "CheckBoxMenuItem"}

// DecodeTree converts a getComponentTree result into a snapshot. The result
// is either {"roots": [...]} or a single component object.
func DecodeTree(raw []byte) (*core.Snapshot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("empty result")
	}

	var top map[string]interface{}
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}

	snap := &core.Snapshot{}
	if roots, ok := top["roots"].([]interface{}); ok {
		for i, r := range roots {
			obj, ok := r.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("root %d is not an object", i)
			}
			snap.Roots = append(snap.Roots, convertNode(obj))
		}
		return snap, nil
	}
	if _, ok := top["id"]; ok {
		snap.Roots = append(snap.Roots, convertNode(top))
		return snap, nil
	}
	return nil, fmt.Errorf("result has neither roots nor id")
}

func convertNode(obj map[string]interface{}) core.RawNode {
	n := core.RawNode{
		ID:         scalarString(obj["id"]),
		Class:      scalarString(obj["class"]),
		Name:       scalarString(obj["name"]),
		Text:       scalarString(obj["text"]),
		Attributes: map[string]string{},
	}
	if n.Text == "" {
		n.Text = scalarString(obj["title"])
	}

	_, hasShowing := obj["showing"]
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if skipFields[k] {
			continue
		}
		v := obj[k]
		if b, ok := v.(bool); ok && (stateFields[k] || k == "visible") {
			if b && (k != "visible" || !hasShowing) {
				n.States = append(n.States, k)
			}
			continue
		}
		if s, ok := attributeValue(v); ok {
			n.Attributes[k] = s
		}
	}

	if isToggle(n.Class) && hasState(n.States, "selected") && !hasState(n.States, "checked") {
		n.States = append(n.States, "checked")
	}

	if children, ok := obj["children"].([]interface{}); ok {
		for _, c := range children {
			if child, ok := c.(map[string]interface{}); ok {
				n.Children = append(n.Children, convertNode(child))
			}
		}
	}
	return n
}

func attributeValue(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, scalarString(e))
		}
		return strings.Join(parts, ","), true
	case map[string]interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return scalarString(v), true
	}
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return jsoniter.Wrap(t).ToString()
	}
}

func isToggle(class string) bool {
	for _, t := range toggleTypes {
		if strings.HasSuffix(class, t) {
			return true
		}
	}
	return false
}

func hasState(states []string, s string) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
