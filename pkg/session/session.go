// Package session is the caller-facing API: it owns the current tree model
// for one connected application and turns locator strings into handles,
// property reads, actions and retried assertions.
//
// The current model is an immutable snapshot behind an atomic pointer.
// Readers resolve against whatever model they loaded; a refresh builds the
// replacement completely before swapping it in, and refreshes are serialized.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/devicelab-dev/javagui-runner/pkg/assertion"
	"github.com/devicelab-dev/javagui-runner/pkg/config"
	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
	"github.com/devicelab-dev/javagui-runner/pkg/handle"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/logger"
	"github.com/devicelab-dev/javagui-runner/pkg/match"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

// Options configures a Session.
//
// A zero Timeout is honored: each assertion makes a single attempt. Start
// from DefaultOptions for the usual retry budget.
type Options struct {
	Timeout       time.Duration        // default assertion timeout; zero means one attempt
	PollInterval  time.Duration        // default pause between assertion attempts
	RefreshPolicy config.RefreshPolicy // when to refresh implicitly

	// Now and Sleep are passed to the retry loop; nil means the real clock.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:       assertion.DefaultTimeout,
		PollInterval:  assertion.DefaultPollInterval,
		RefreshPolicy: config.RefreshAfterAction,
	}
}

// OptionsFromConfig maps the loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timeout:       cfg.Timeout,
		PollInterval:  cfg.PollInterval,
		RefreshPolicy: cfg.RefreshPolicy,
	}
}

// Session is safe for concurrent use.
type Session struct {
	id    string
	agent core.Agent
	opts  Options
	log   *zap.Logger

	current   atomic.Pointer[tree.Model]
	refreshMu sync.Mutex
	firstLoad singleflight.Group
	locators  *locator.Cache
}

// New creates a session over agent. No tree is fetched until first use.
func New(agent core.Agent, opts Options) *Session {
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = assertion.DefaultPollInterval
	}
	if opts.RefreshPolicy == "" {
		opts.RefreshPolicy = config.RefreshAfterAction
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		agent:    agent,
		opts:     opts,
		log:      logger.L().With(zap.String("session_id", id)),
		locators: locator.NewCache(0),
	}
}

// ID returns the session's unique id, used in log fields and check results.
func (s *Session) ID() string {
	return s.id
}

// Tree returns the current model, or nil before the first fetch.
func (s *Session) Tree() *tree.Model {
	return s.current.Load()
}

// Status reports the agent connection state.
func (s *Session) Status() core.ConnectionStatus {
	return s.agent.ConnectionStatus()
}

// RefreshTree fetches a new snapshot and makes it the current model. Every
// handle issued before the call is stale afterwards.
func (s *Session) RefreshTree(ctx context.Context) (*tree.Model, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	snap, err := s.agent.FetchTreeSnapshot(ctx)
	if err != nil {
		return nil, asConnectionError(err)
	}
	m, err := tree.Build(snap)
	if err != nil {
		return nil, core.ErrConnection.WithMessage("agent sent an unusable component tree").WithCause(err)
	}

	prev := s.current.Swap(m)
	fields := []zap.Field{
		zap.Uint64("generation", m.Generation),
		zap.Int("components", m.Len()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if prev != nil {
		fields = append(fields, zap.Uint64("previous", prev.Generation))
	}
	s.log.Debug("tree refreshed", fields...)
	return m, nil
}

// model returns the current model, fetching one if none exists yet.
// Concurrent first callers share a single fetch.
func (s *Session) model() (*tree.Model, error) {
	if m := s.current.Load(); m != nil {
		return m, nil
	}
	v, err, _ := s.firstLoad.Do("load", func() (interface{}, error) {
		if m := s.current.Load(); m != nil {
			return m, nil
		}
		return s.RefreshTree(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return v.(*tree.Model), nil
}

func (s *Session) parse(text string) (*locator.Selector, error) {
	return s.locators.Parse(text)
}

// ResolveOne returns a handle to the single component matching text.
func (s *Session) ResolveOne(text string) (handle.Handle, error) {
	sel, err := s.parse(text)
	if err != nil {
		return handle.Handle{}, err
	}
	m, err := s.model()
	if err != nil {
		return handle.Handle{}, err
	}
	n, err := match.ResolveOne(sel, m, nil)
	if err != nil {
		return handle.Handle{}, err
	}
	return handle.New(n, m), nil
}

// ResolveAll returns handles to every matching component in document order.
// No match is an empty slice, not an error.
func (s *Session) ResolveAll(text string) ([]handle.Handle, error) {
	sel, err := s.parse(text)
	if err != nil {
		return nil, err
	}
	m, err := s.model()
	if err != nil {
		return nil, err
	}
	r := match.Resolve(sel, m, nil)
	return handle.All(r.Nodes, m), nil
}

// Count returns the number of components matching text.
func (s *Session) Count(text string) (int, error) {
	hs, err := s.ResolveAll(text)
	if err != nil {
		return 0, err
	}
	return len(hs), nil
}

// Get reads property from the single component matching text.
func (s *Session) Get(text, property string) (interface{}, error) {
	sel, err := s.parse(text)
	if err != nil {
		return nil, err
	}
	m, err := s.model()
	if err != nil {
		return nil, err
	}
	n, err := match.ResolveOne(sel, m, nil)
	if err != nil {
		return nil, err
	}
	return Property(n, property)
}

// GetByHandle reads property from the component h refers to. It fails with
// core.ErrStaleElement if the tree was refreshed after h was issued.
func (s *Session) GetByHandle(h handle.Handle, property string) (interface{}, error) {
	n, err := handle.Dereference(h, s.current.Load())
	if err != nil {
		return nil, err
	}
	return Property(n, property)
}

// Perform runs an action on the component h refers to. Under the
// after-action refresh policy the tree is re-read once the agent reports
// success, so h is stale when Perform returns.
func (s *Session) Perform(h handle.Handle, action string, args map[string]interface{}) error {
	n, err := handle.Dereference(h, s.current.Load())
	if err != nil {
		return err
	}

	ctx := context.Background()
	s.log.Debug("perform action",
		zap.String("action", action), zap.String("remote_id", n.RemoteID), zap.String("type", n.SimpleType()))
	if err := s.agent.PerformAction(ctx, n.RemoteID, action, args); err != nil {
		return asActionError(action, n, err)
	}

	if s.opts.RefreshPolicy == config.RefreshAfterAction {
		if _, err := s.RefreshTree(ctx); err != nil {
			return fmt.Errorf("refresh after %s: %w", action, err)
		}
	}
	return nil
}

// Act resolves text to one component and performs action on it.
func (s *Session) Act(text, action string, args map[string]interface{}) error {
	h, err := s.ResolveOne(text)
	if err != nil {
		return err
	}
	return s.Perform(h, action, args)
}

// AssertOption overrides a default for one assertion.
type AssertOption func(*assertion.Options)

// WithTimeout sets the total time budget. Zero means a single attempt.
func WithTimeout(d time.Duration) AssertOption {
	return func(o *assertion.Options) { o.Timeout = d }
}

// WithPollInterval sets the pause between attempts.
func WithPollInterval(d time.Duration) AssertOption {
	return func(o *assertion.Options) { o.PollInterval = d }
}

// WithMessage replaces the generated failure message.
func WithMessage(msg string) AssertOption {
	return func(o *assertion.Options) { o.Message = msg }
}

func (s *Session) assertOptions(opts []AssertOption) assertion.Options {
	o := assertion.Options{
		Timeout:      s.opts.Timeout,
		PollInterval: s.opts.PollInterval,
		Now:          s.opts.Now,
		Sleep:        s.opts.Sleep,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// pollContext bounds the fetches of one retry loop by its timeout, so a
// slow agent cannot hold an attempt past the deadline. A zero timeout makes
// one attempt, which is left unbounded.
func pollContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// Assert waits until property of the component matching text satisfies
// operator against expected, and returns the satisfying value.
//
// The operator and locator are checked before the first attempt. Every
// attempt refreshes the tree, resolves and reads the property; resolution
// and connection failures are retried until the timeout.
func (s *Session) Assert(text, property, operator string, expected interface{}, opts ...AssertOption) (interface{}, error) {
	op, err := assertion.ParseOperator(operator)
	if err != nil {
		return nil, withLocator(err, text, property)
	}
	sel, err := s.parse(text)
	if err != nil {
		return nil, err
	}

	o := s.assertOptions(opts)
	ctx, cancel := pollContext(o.Timeout)
	defer cancel()

	get := func() (interface{}, error) {
		m, err := s.RefreshTree(ctx)
		if err != nil {
			return nil, err
		}
		n, err := match.ResolveOne(sel, m, nil)
		if err != nil {
			return nil, err
		}
		return Property(n, property)
	}

	out := assertion.Run(get, op, expected, o)
	s.log.Debug("assertion finished",
		zap.String("locator", text),
		zap.String("property", property),
		zap.String("operator", string(op)),
		zap.Bool("satisfied", out.Satisfied),
		zap.Int("attempts", out.Attempts),
		zap.Duration("elapsed", out.Elapsed))

	if out.Satisfied {
		return out.Value, nil
	}
	if out.Err != nil {
		return out.Value, withLocator(out.Err, text, property)
	}
	return out.Value, out.Failure(map[string]interface{}{
		diag.KeyLocator:  text,
		diag.KeyProperty: property,
	})
}

// withLocator adds the locator and property to an early-stop error so the
// report names what was being asserted.
func withLocator(err error, text, property string) error {
	var ee *core.ExecutionError
	if !errors.As(err, &ee) {
		return err
	}
	details := map[string]interface{}{diag.KeyLocator: text}
	if property != "" {
		details[diag.KeyProperty] = property
	}
	out := ee.WithDetails(details)
	if ee.Report != nil {
		ctx := make(map[string]interface{}, len(ee.Report.Context)+2)
		for k, v := range ee.Report.Context {
			ctx[k] = v
		}
		for k, v := range details {
			ctx[k] = v
		}
		ctx[diag.KeyMessage] = ee.Report.Message
		out = out.WithReport(diag.Build(ee.Report.Kind, ctx, ee.Report.Suggestions, ee.Report.Related))
	}
	return out
}

func asConnectionError(err error) error {
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return core.ErrConnection.WithCause(err)
}

func asActionError(action string, n *tree.Node, err error) error {
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return core.ErrActionFailed.
		WithMessagef("%s on %s failed", action, match.ApproximateLocator(n)).
		WithCause(err).
		WithDetails(map[string]interface{}{"action": action, diag.KeyRemoteID: n.RemoteID})
}
