package session

import (
	"fmt"

	"github.com/devicelab-dev/javagui-runner/pkg/assertion"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/match"
)

// WaitUntilExists waits until at least one component matches text.
func (s *Session) WaitUntilExists(text string, opts ...AssertOption) error {
	return s.waitCount(text, assertion.OpGreaterEqual, 1, "to appear", opts)
}

// WaitUntilNotExists waits until no component matches text.
func (s *Session) WaitUntilNotExists(text string, opts ...AssertOption) error {
	return s.waitCount(text, assertion.OpEqual, 0, "to disappear", opts)
}

// WaitUntilVisible waits until the component matching text is visible.
func (s *Session) WaitUntilVisible(text string, opts ...AssertOption) error {
	_, err := s.Assert(text, string(locator.StateVisible), string(assertion.OpEqual), true, opts...)
	return err
}

// WaitUntilEnabled waits until the component matching text is enabled.
func (s *Session) WaitUntilEnabled(text string, opts ...AssertOption) error {
	_, err := s.Assert(text, string(locator.StateEnabled), string(assertion.OpEqual), true, opts...)
	return err
}

func (s *Session) waitCount(text string, op assertion.Operator, want int, what string, opts []AssertOption) error {
	sel, err := s.parse(text)
	if err != nil {
		return err
	}

	o := s.assertOptions(opts)
	ctx, cancel := pollContext(o.Timeout)
	defer cancel()

	get := func() (int, error) {
		m, err := s.RefreshTree(ctx)
		if err != nil {
			return 0, err
		}
		return match.Resolve(sel, m, nil).Len(), nil
	}

	if o.Message == "" {
		o.Message = fmt.Sprintf("timed out waiting for %q %s", text, what)
	}
	out := assertion.Run(get, op, want, o)
	if out.Satisfied {
		return nil
	}
	if out.Err != nil {
		return withLocator(out.Err, text, "")
	}
	return out.Failure(map[string]interface{}{
		diag.KeyLocator:  text,
		diag.KeyProperty: "count",
	})
}
