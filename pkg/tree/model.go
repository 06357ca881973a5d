// Package tree holds one immutable generation of the remote component tree.
//
// Nodes live in a flat arena in pre-order, so a node's index is its document
// position and its descendants occupy the contiguous range (ID, End). Parent
// and child links are arena indices. Index 0 is a synthetic root whose
// children are the top-level windows.
package tree

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// RootType is the type name of the synthetic root node.
const RootType = "#root"

// StateSet is a sorted, duplicate-free set of state names.
type StateSet []string

// Has reports whether the set contains state.
func (s StateSet) Has(state string) bool {
	i := sort.SearchStrings(s, state)
	return i < len(s) && s[i] == state
}

// Strings returns a copy of the set.
func (s StateSet) Strings() []string {
	return append([]string{}, s...)
}

// Node is one component in a Model. Nodes are owned by their Model and must
// not be modified.
type Node struct {
	ID       int               // arena index, equal to document position
	RemoteID string            // agent-assigned id, unique within the generation
	TypeName string            // fully-qualified type as reported
	Attrs    map[string]string // includes name and text when reported
	States   StateSet
	Parent   int   // -1 for the root
	Children []int // in reported order
	Depth    int   // root is 0, top-level windows are 1
	End      int   // one past the last descendant's ID
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool {
	return n.Parent < 0
}

// Attr returns the attribute value for key.
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.Attrs[key]
	return v, ok
}

// Name returns the name attribute, or "".
func (n *Node) Name() string {
	return n.Attrs["name"]
}

// Text returns the text attribute, or "".
func (n *Node) Text() string {
	return n.Attrs["text"]
}

// SimpleType returns the type name without its package or outer class.
func (n *Node) SimpleType() string {
	return SimpleName(n.TypeName)
}

// SimpleName strips everything up to the last '.' or '$'.
func SimpleName(typeName string) string {
	if i := strings.LastIndexAny(typeName, ".$"); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}

// Model is one generation of the component tree. It is never mutated after
// Build returns, so any number of goroutines may read it concurrently.
type Model struct {
	Generation uint64
	BuiltAt    time.Time

	nodes      []Node
	byRemoteID map[string]int
}

// Root returns the synthetic root node.
func (m *Model) Root() *Node {
	return &m.nodes[0]
}

// Len returns the number of components, excluding the synthetic root.
func (m *Model) Len() int {
	return len(m.nodes) - 1
}

// Node returns the node at arena index id, or nil.
func (m *Model) Node(id int) *Node {
	if id < 0 || id >= len(m.nodes) {
		return nil
	}
	return &m.nodes[id]
}

// Lookup finds a node by remote id.
func (m *Model) Lookup(remoteID string) (*Node, bool) {
	i, ok := m.byRemoteID[remoteID]
	if !ok {
		return nil, false
	}
	return &m.nodes[i], true
}

// Parent returns n's parent, or nil for the root.
func (m *Model) Parent(n *Node) *Node {
	if n.Parent < 0 {
		return nil
	}
	return &m.nodes[n.Parent]
}

// Children returns n's children in reported order.
func (m *Model) Children(n *Node) []*Node {
	out := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		out[i] = &m.nodes[c]
	}
	return out
}

// Descendants returns every node below n in document order.
func (m *Model) Descendants(n *Node) []*Node {
	out := make([]*Node, 0, n.End-n.ID-1)
	for i := n.ID + 1; i < n.End; i++ {
		out = append(out, &m.nodes[i])
	}
	return out
}

// Nodes returns every component in document order, excluding the root.
func (m *Model) Nodes() []*Node {
	return m.Descendants(m.Root())
}

// IsDescendant reports whether a is strictly below b.
func (m *Model) IsDescendant(a, b *Node) bool {
	return a.ID > b.ID && a.ID < b.End
}

// Walk visits n and its subtree in pre-order. Returning false from fn skips
// the visited node's children.
func (m *Model) Walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		m.Walk(&m.nodes[c], fn)
	}
}

// Label is the text a tree or list node is addressed by in path locators:
// the text attribute, falling back to name.
func Label(n *Node) string {
	if t := n.Attrs["text"]; t != "" {
		return t
	}
	return n.Attrs["name"]
}

// Dump writes an indented outline of the model. maxDepth <= 0 means no limit.
func (m *Model) Dump(w io.Writer, maxDepth int) error {
	var err error
	m.Walk(m.Root(), func(n *Node) bool {
		if err != nil {
			return false
		}
		if n.IsRoot() {
			_, err = fmt.Fprintf(w, "generation %d (%d components)\n", m.Generation, m.Len())
			return true
		}
		_, err = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Depth-1), describe(n))
		return maxDepth <= 0 || n.Depth < maxDepth
	})
	return err
}

func describe(n *Node) string {
	var sb strings.Builder
	sb.WriteString(n.SimpleType())
	if name := n.Name(); name != "" {
		sb.WriteString("#" + name)
	}
	if text := n.Text(); text != "" {
		sb.WriteString(fmt.Sprintf(" %q", text))
	}
	if len(n.States) > 0 {
		sb.WriteString(" [" + strings.Join(n.States, " ") + "]")
	}
	sb.WriteString(" id=" + n.RemoteID)
	return sb.String()
}
