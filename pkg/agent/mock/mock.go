// Package mock provides a scripted agent for testing without a live JVM.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
)

// Reply is one scripted answer to FetchTreeSnapshot.
type Reply struct {
	Snapshot *core.Snapshot
	Err      error
}

// Action records one PerformAction call.
type Action struct {
	RemoteID string
	Name     string
	Args     map[string]interface{}
}

// Config configures mock agent behavior.
type Config struct {
	// FailOnAction makes action N fail (1-indexed). 0 = never fail.
	FailOnAction int
	// FetchDelay adds artificial latency per fetch
	FetchDelay time.Duration
	// OnAction runs after a successful action; a non-nil snapshot is
	// appended to the script so the next fetch sees the change
	OnAction func(a Action, current *core.Snapshot) *core.Snapshot
}

// Agent is a mock implementation of core.Agent. Each fetch returns the next
// scripted reply; the last reply repeats once the script is exhausted.
type Agent struct {
	Config Config

	mu      sync.Mutex
	script  []Reply
	cursor  int
	fetches int
	last    *core.Snapshot
	actions []Action
	status  core.ConnectionStatus
}

// New creates a mock agent serving snapshots in order.
func New(cfg Config, snapshots ...*core.Snapshot) *Agent {
	a := &Agent{Config: cfg, status: core.Connected}
	for _, s := range snapshots {
		a.script = append(a.script, Reply{Snapshot: s})
	}
	return a
}

// Push appends a snapshot to the script.
func (a *Agent) Push(snap *core.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script = append(a.script, Reply{Snapshot: snap})
}

// PushError appends a fetch error to the script.
func (a *Agent) PushError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script = append(a.script, Reply{Err: err})
}

// SetStatus changes the reported connection status. While not connected,
// fetches and actions fail with a connection error.
func (a *Agent) SetStatus(s core.ConnectionStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// FetchTreeSnapshot returns the next scripted reply.
func (a *Agent) FetchTreeSnapshot(ctx context.Context) (*core.Snapshot, error) {
	if a.Config.FetchDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, core.ErrConnectionTimeout.WithCause(ctx.Err())
		case <-time.After(a.Config.FetchDelay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, core.ErrConnectionTimeout.WithCause(err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++

	if err := a.statusErr(); err != nil {
		return nil, err
	}
	if len(a.script) == 0 {
		return nil, core.ErrConnection.WithMessage("mock agent has no snapshot")
	}

	i := a.cursor
	if i >= len(a.script) {
		i = len(a.script) - 1
	} else {
		a.cursor++
	}
	r := a.script[i]
	if r.Err != nil {
		return nil, r.Err
	}
	a.last = r.Snapshot
	return r.Snapshot, nil
}

// PerformAction records the action. It fails for components missing from the
// last served snapshot and for the configured FailOnAction call.
func (a *Agent) PerformAction(ctx context.Context, remoteID, action string, args map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return core.ErrConnectionTimeout.WithCause(err)
	}

	a.mu.Lock()
	if err := a.statusErr(); err != nil {
		a.mu.Unlock()
		return err
	}
	rec := Action{RemoteID: remoteID, Name: action, Args: args}
	a.actions = append(a.actions, rec)
	n := len(a.actions)
	current := a.last
	a.mu.Unlock()

	if a.Config.FailOnAction > 0 && n == a.Config.FailOnAction {
		return core.ErrActionFailed.WithMessagef("mock failure on action %d (%s)", n, action)
	}
	if current != nil && !contains(current.Roots, remoteID) {
		return core.ErrActionFailed.WithMessagef("component %s not found", remoteID)
	}

	if a.Config.OnAction != nil {
		if next := a.Config.OnAction(rec, current); next != nil {
			a.Push(next)
		}
	}
	return nil
}

// ConnectionStatus returns the configured status.
func (a *Agent) ConnectionStatus() core.ConnectionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Actions returns the recorded actions in call order.
func (a *Agent) Actions() []Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Action(nil), a.actions...)
}

// Fetches returns the number of FetchTreeSnapshot calls.
func (a *Agent) Fetches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetches
}

func (a *Agent) statusErr() error {
	switch a.status {
	case core.Connected:
		return nil
	case core.TimedOut:
		return core.ErrConnectionTimeout
	default:
		return core.ErrConnection.WithMessage(fmt.Sprintf("mock agent is %s", a.status))
	}
}

func contains(nodes []core.RawNode, id string) bool {
	for i := range nodes {
		if nodes[i].ID == id || contains(nodes[i].Children, id) {
			return true
		}
	}
	return false
}
