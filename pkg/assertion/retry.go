package assertion

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// Defaults for Options.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
)

// Options controls the retry loop.
type Options struct {
	// Timeout is the total time budget. Zero means exactly one attempt.
	Timeout time.Duration

	// PollInterval is the pause between attempts (default 200ms).
	PollInterval time.Duration

	// Message replaces the generated failure message.
	Message string

	// Now and Sleep default to time.Now and time.Sleep. Tests replace them
	// with a fake clock.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// DefaultOptions returns Options with the library-wide timeout and interval.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, PollInterval: DefaultPollInterval}
}

func (o Options) withDefaults() Options {
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// Outcome is the result of one Run.
//
// When the loop did not succeed, exactly one of HasValue and LastErr != nil
// holds: whichever the last attempt produced.
type Outcome[T any] struct {
	Satisfied bool
	Value     T    // last observed value
	HasValue  bool // Value came from the last attempt
	LastErr   error

	// Err is set when the loop stopped early: a non-retryable get error or a
	// configuration error from the operator.
	Err error

	Elapsed  time.Duration
	Attempts int
	Timeout  time.Duration
	Operator Operator
	Expected interface{}
	Message  string
}

// Run polls get until op(value, expected) holds or the timeout passes.
//
// The operator and expected value are checked with Check before get is
// ever called, so a configuration error costs no attempt. Each attempt calls
// get once. A satisfied attempt returns at once. A get error that
// core.IsRetryable accepts is recorded and polling continues; any other get
// error, and any error from evaluating the operator, ends the loop
// immediately. Between attempts Run sleeps min(PollInterval, time left).
// The loop runs on the calling goroutine.
func Run[T any](get func() (T, error), op Operator, expected interface{}, opts Options) Outcome[T] {
	opts = opts.withDefaults()
	out := Outcome[T]{
		Timeout:  opts.Timeout,
		Operator: op,
		Expected: expected,
		Message:  opts.Message,
	}
	if err := Check(op, expected); err != nil {
		out.Err = err
		return out
	}
	start := opts.Now()

	for {
		out.Attempts++
		v, err := get()
		if err != nil {
			var zero T
			out.Value, out.HasValue, out.LastErr = zero, false, err
			if !core.IsRetryable(err) {
				out.Err = err
				out.Elapsed = opts.Now().Sub(start)
				return out
			}
		} else {
			out.Value, out.HasValue, out.LastErr = v, true, nil
			ok, evalErr := Evaluate(op, v, expected)
			if evalErr != nil {
				out.Err = evalErr
				out.Elapsed = opts.Now().Sub(start)
				return out
			}
			if ok {
				out.Satisfied = true
				out.Elapsed = opts.Now().Sub(start)
				return out
			}
		}

		elapsed := opts.Now().Sub(start)
		if elapsed >= opts.Timeout {
			out.Elapsed = elapsed
			return out
		}
		wait := opts.PollInterval
		if remaining := opts.Timeout - elapsed; remaining < wait {
			wait = remaining
		}
		opts.Sleep(wait)
	}
}

// Assert runs the loop and converts a failed outcome into an error.
func Assert[T any](get func() (T, error), op Operator, expected interface{}, opts Options) (T, error) {
	out := Run(get, op, expected, opts)
	if out.Satisfied {
		return out.Value, nil
	}
	return out.Value, out.Failure(nil)
}

// Failure returns the error describing an unsatisfied outcome, or nil if the
// outcome was satisfied. Early-stop errors are returned unchanged. Otherwise
// the error is assertion_timeout when a timeout was given and
// assertion_failed when it was zero; the last get error becomes its cause
// and its suggestions are carried into the report. extra adds context such
// as the locator and property.
func (o Outcome[T]) Failure(extra map[string]interface{}) error {
	if o.Satisfied {
		return nil
	}
	if o.Err != nil {
		return o.Err
	}

	base := core.ErrAssertionFailed
	if o.Timeout > 0 {
		base = core.ErrAssertionTimeout
	}

	ctx := make(map[string]interface{}, len(extra)+6)
	for k, v := range extra {
		ctx[k] = v
	}
	ctx[diag.KeyOperator] = string(o.Operator)
	ctx[diag.KeyExpected] = o.Expected
	ctx[diag.KeyElapsed] = o.Elapsed
	ctx[diag.KeyAttempts] = o.Attempts
	if o.HasValue {
		ctx[diag.KeyActual] = o.Value
	}
	if o.LastErr != nil {
		ctx[diag.KeyError] = o.LastErr.Error()
	}

	msg := o.Message
	if msg == "" {
		msg = o.describe()
	}
	ctx[diag.KeyMessage] = msg

	var suggestions []diag.Suggestion
	var related []string
	if rep := core.ReportOf(o.LastErr); rep != nil {
		suggestions, related = rep.Suggestions, rep.Related
	}

	err := base.WithMessage(msg).
		WithDetails(ctx).
		WithReport(diag.Build(base.Code, ctx, suggestions, related))
	if o.LastErr != nil {
		err = err.WithCause(o.LastErr)
	}
	return err
}

func (o Outcome[T]) describe() string {
	var msg string
	if o.HasValue {
		msg = fmt.Sprintf("expected value %s %v, got %v", o.Operator, quote(o.Expected), quote(o.Value))
	} else {
		msg = fmt.Sprintf("expected value %s %v, but no value could be read", o.Operator, quote(o.Expected))
	}
	if o.Timeout > 0 {
		msg += fmt.Sprintf(" (after %s, %d attempts)", o.Elapsed.Round(time.Millisecond), o.Attempts)
	}
	return msg
}

func quote(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return v
}
