// Package handle issues generation-scoped references to resolved components.
//
// A Handle is a pure lookup key. The only way back to a node is Dereference,
// which fails with core.ErrStaleElement once the model the handle came from
// has been replaced, even if the new model has a node with the same remote id.
package handle

import (
	"fmt"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

// Handle identifies a component within one tree generation.
type Handle struct {
	RemoteID   string `json:"remoteId" yaml:"remoteId"`
	Generation uint64 `json:"generation" yaml:"generation"`
}

// New returns a handle for n, which must belong to m.
func New(n *tree.Node, m *tree.Model) Handle {
	return Handle{RemoteID: n.RemoteID, Generation: m.Generation}
}

// All returns handles for nodes, preserving order.
func All(nodes []*tree.Node, m *tree.Model) []Handle {
	out := make([]Handle, len(nodes))
	for i, n := range nodes {
		out[i] = New(n, m)
	}
	return out
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.RemoteID == "" && h.Generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%s@%d", h.RemoteID, h.Generation)
}

// Dereference returns the node h refers to in m. It succeeds only when m is
// the generation h was issued against and still contains the remote id.
func Dereference(h Handle, m *tree.Model) (*tree.Node, error) {
	if m != nil && h.Generation == m.Generation {
		if n, ok := m.Lookup(h.RemoteID); ok {
			return n, nil
		}
	}

	var current uint64
	if m != nil {
		current = m.Generation
	}
	return nil, core.ErrStaleElement.
		WithMessagef("element %s is stale", h.RemoteID).
		WithDetails(map[string]interface{}{
			diag.KeyRemoteID:    h.RemoteID,
			"handle_generation": h.Generation,
			diag.KeyGeneration:  current,
		})
}
