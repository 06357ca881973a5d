// Package core provides the shared model types for javagui-runner: the agent
// contract, the error taxonomy and check results.
package core

import (
	"context"
)

// Agent is the collaborator injected into the target JVM.
// Implementations: rpc (JSON-RPC over TCP), mock.
// The session handles locator resolution; the Agent only reports state and
// performs actions on components it identified.
type Agent interface {
	// FetchTreeSnapshot returns the full component tree as currently shown
	FetchTreeSnapshot(ctx context.Context) (*Snapshot, error)

	// PerformAction runs an action (click, typeText, ...) on a component
	PerformAction(ctx context.Context, remoteID, action string, args map[string]interface{}) error

	// ConnectionStatus reports the agent link state without blocking
	ConnectionStatus() ConnectionStatus
}

// ConnectionStatus is the state of the link to the agent.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connected
	TimedOut
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Snapshot is the raw component tree as reported by the agent.
type Snapshot struct {
	Roots []RawNode `json:"roots" yaml:"roots"` // Top-level windows in z-order
}

// RawNode is one component as reported by the agent.
type RawNode struct {
	ID         string            `json:"id" yaml:"id"`       // Agent-assigned, unique per snapshot
	Class      string            `json:"class" yaml:"class"` // Fully-qualified type name
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Text       string            `json:"text,omitempty" yaml:"text,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	States     []string          `json:"states,omitempty" yaml:"states,omitempty"` // visible, enabled, ...
	Children   []RawNode         `json:"children,omitempty" yaml:"children,omitempty"`
}

// Count returns the number of nodes in the snapshot.
func (s *Snapshot) Count() int {
	if s == nil {
		return 0
	}
	n := 0
	var walk func(nodes []RawNode)
	walk = func(nodes []RawNode) {
		for i := range nodes {
			n++
			walk(nodes[i].Children)
		}
	}
	walk(s.Roots)
	return n
}

// Common action names understood by the agent.
const (
	ActionClick       = "click"
	ActionDoubleClick = "doubleClick"
	ActionRightClick  = "rightClick"
	ActionTypeText    = "typeText"
	ActionClearText   = "clearText"
	ActionSelectItem  = "selectItem"
	ActionFocus       = "focus"
	ActionExpandNode  = "expandTreeNode"
	ActionSelectNode  = "selectTreeNode"
)
