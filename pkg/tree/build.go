package tree

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
)

// ErrInvalidSnapshot is returned for agent data that cannot form a tree.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// generations is shared by every Model in the process so that a newer model
// always carries a larger generation, whichever session built it.
var generations atomic.Uint64

// stateAliases maps agent spellings onto locator state names.
var stateAliases = map[string]string{
	"showing":    "visible",
	"focusowner": "focused",
	"check":      "checked",
}

// Build constructs a fresh Model from agent data. Every node in a fetched
// snapshot is attached, so the attached state is added to each one.
func Build(snap *core.Snapshot) (*Model, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}

	m := &Model{
		nodes:      make([]Node, 1, snap.Count()+1),
		byRemoteID: make(map[string]int, snap.Count()),
	}
	m.nodes[0] = Node{ID: 0, TypeName: RootType, Attrs: map[string]string{}, Parent: -1}

	for i := range snap.Roots {
		if err := m.add(&snap.Roots[i], 0, 1); err != nil {
			return nil, err
		}
	}
	m.nodes[0].End = len(m.nodes)

	m.Generation = generations.Add(1)
	m.BuiltAt = time.Now()
	return m, nil
}

func (m *Model) add(raw *core.RawNode, parent, depth int) error {
	if raw.ID == "" {
		return fmt.Errorf("%w: %s node without id", ErrInvalidSnapshot, raw.Class)
	}
	if _, dup := m.byRemoteID[raw.ID]; dup {
		return fmt.Errorf("%w: duplicate id %q", ErrInvalidSnapshot, raw.ID)
	}

	idx := len(m.nodes)
	m.nodes = append(m.nodes, Node{
		ID:       idx,
		RemoteID: raw.ID,
		TypeName: raw.Class,
		Attrs:    attributes(raw),
		States:   normalizeStates(raw.States),
		Parent:   parent,
		Depth:    depth,
	})
	m.byRemoteID[raw.ID] = idx
	m.nodes[parent].Children = append(m.nodes[parent].Children, idx)

	for i := range raw.Children {
		if err := m.add(&raw.Children[i], idx, depth+1); err != nil {
			return err
		}
	}
	m.nodes[idx].End = len(m.nodes)
	return nil
}

func attributes(raw *core.RawNode) map[string]string {
	attrs := make(map[string]string, len(raw.Attributes)+2)
	for k, v := range raw.Attributes {
		attrs[k] = v
	}
	if raw.Name != "" {
		attrs["name"] = raw.Name
	}
	if raw.Text != "" {
		attrs["text"] = raw.Text
	}
	return attrs
}

func normalizeStates(states []string) StateSet {
	seen := map[string]bool{"attached": true}
	for _, s := range states {
		s = strings.ToLower(strings.TrimSpace(s))
		if alias, ok := stateAliases[s]; ok {
			s = alias
		}
		if s != "" {
			seen[s] = true
		}
	}
	out := make(StateSet, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
