package checks

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/logger"
	"github.com/devicelab-dev/javagui-runner/pkg/session"
)

// Target is the part of a session the runner drives.
type Target interface {
	Assert(locator, property, operator string, expected interface{}, opts ...session.AssertOption) (interface{}, error)
	Act(locator, action string, args map[string]interface{}) error
	WaitUntilExists(locator string, opts ...session.AssertOption) error
}

// Runner executes check files.
type Runner struct {
	target Target

	// StopOnFailure skips the remaining checks after the first failure,
	// in addition to files that set stopOnFailure themselves.
	StopOnFailure bool

	// OnCheckEnd is called after each check, for progress output.
	OnCheckEnd func(r core.CheckResult)
}

// NewRunner creates a runner over target, usually a *session.Session.
func NewRunner(target Target) *Runner {
	return &Runner{target: target}
}

// Run executes every check in order and returns the suite result.
func (r *Runner) Run(f *File) *core.SuiteResult {
	suite := &core.SuiteResult{
		Name:      f.Name,
		RunID:     uuid.NewString(),
		FilePath:  f.SourcePath,
		StartTime: time.Now(),
	}
	log := logger.L().With(zap.String("run_id", suite.RunID), zap.String("file", f.SourcePath))
	stop := r.StopOnFailure || f.StopOnFailure
	skipping := false

	for i := range f.Checks {
		c := &f.Checks[i]
		res := core.CheckResult{
			Index:   i,
			Name:    c.Label(),
			Locator: c.Locator,
		}

		if skipping {
			res.Status = core.StatusSkipped
		} else {
			r.execute(f, c, &res)
			log.Info("check finished",
				zap.Int("index", i),
				zap.String("name", res.Name),
				zap.String("status", res.Status.String()),
				zap.Duration("duration", res.Duration))
			if stop && !res.Status.IsSuccess() {
				skipping = true
			}
		}

		suite.Checks = append(suite.Checks, res)
		if r.OnCheckEnd != nil {
			r.OnCheckEnd(res)
		}
	}

	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()
	return suite
}

func (r *Runner) execute(f *File, c *Check, res *core.CheckResult) {
	res.StartTime = time.Now()

	var opts []session.AssertOption
	if c.Timeout != nil {
		opts = append(opts, session.WithTimeout(*c.Timeout))
	} else if f.Timeout != nil {
		opts = append(opts, session.WithTimeout(*f.Timeout))
	}
	if c.Message != "" {
		opts = append(opts, session.WithMessage(c.Message))
	}

	var err error
	switch c.Kind() {
	case KindInclude:
		err = core.ErrInvalidConfig.WithMessagef("include %q was not expanded; load the file with a Validator", c.Include)
	case KindAction:
		err = r.target.Act(c.Locator, c.Action, c.Args)
	case KindExists:
		err = r.target.WaitUntilExists(c.Locator, opts...)
	default:
		res.Value, err = r.target.Assert(c.Locator, c.Property, c.Operator, c.Expected, opts...)
	}

	res.Duration = time.Since(res.StartTime)
	res.Status = core.StatusForError(err)
	if err != nil {
		res.Category = core.CategoryOf(err)
		res.Error = err.Error()
		res.Diagnostics = core.ReportOf(err)
	}
}
