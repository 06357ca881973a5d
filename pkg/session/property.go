package session

import (
	"sort"
	"strconv"
	"strings"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/match"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

// numericAttrs are attributes returned as float64 when they parse as numbers.
var numericAttrs = map[string]bool{
	"x":             true,
	"y":             true,
	"width":         true,
	"height":        true,
	"screenX":       true,
	"screenY":       true,
	"selectedIndex": true,
	"itemCount":     true,
	"rowCount":      true,
	"columnCount":   true,
	"selectedRow":   true,
	"value":         true,
	"minimum":       true,
	"maximum":       true,
	"tabCount":      true,
	"caretPosition": true,
}

// Property reads a named property of n.
//
// Built-in properties are text, name, type (or class), simpleType, states,
// childCount, remoteId and each state name, which reads as a bool. Any other
// name reads the attribute of that name.
func Property(n *tree.Node, property string) (interface{}, error) {
	switch strings.ToLower(property) {
	case "text":
		return n.Text(), nil
	case "name":
		return n.Name(), nil
	case "type", "class":
		return n.TypeName, nil
	case "simpletype":
		return n.SimpleType(), nil
	case "states":
		return n.States.Strings(), nil
	case "childcount":
		return len(n.Children), nil
	case "remoteid":
		return n.RemoteID, nil
	}

	if locator.IsKnownState(strings.ToLower(property)) {
		return n.States.Has(strings.ToLower(property)), nil
	}

	v, ok := n.Attr(property)
	if !ok {
		return nil, unknownProperty(n, property)
	}
	if numericAttrs[property] {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return v, nil
}

func unknownProperty(n *tree.Node, property string) error {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return core.ErrUnknownProperty.
		WithMessagef("%s has no property %q", match.ApproximateLocator(n), property).
		WithDetails(map[string]interface{}{
			diag.KeyProperty: property,
			diag.KeyRemoteID: n.RemoteID,
			"available":      strings.Join(keys, ", "),
		})
}
