// Package runner drives golden-output test cases through a render engine.
//
// Cases run strictly one at a time. For each case the runner parses the
// option directive, checks required capabilities, snapshots the
// environment, prepares a context, invokes the engine in the selected mode,
// normalises both sides, compares them and reports the verdict. A failing
// case never stops the run; only environment, fixture and recorder errors
// do, and those surface as *FatalError.
package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"

	"github.com/roach88/rendertest/internal/capability"
	"github.com/roach88/rendertest/internal/compare"
	"github.com/roach88/rendertest/internal/directive"
	"github.com/roach88/rendertest/internal/env"
	"github.com/roach88/rendertest/internal/normalize"
	"github.com/roach88/rendertest/internal/recorder"
	"github.com/roach88/rendertest/internal/render"
	"github.com/roach88/rendertest/internal/term"
)

// DefaultTitle is the page title used when a case sets none.
const DefaultTitle = "Parser test"

// Config wires a Runner to its collaborators.
type Config struct {
	Engine       render.Engine
	Env          env.Environment
	Recorder     recorder.Recorder
	Capabilities capability.Checker
	Comparator   *compare.Comparator
	Normalize    normalize.Pipeline

	Out    io.Writer
	Term   term.Colorer
	Logger *slog.Logger

	// ShowProgress prints a line per case; when false only failures print.
	ShowProgress bool
	// ShowFailure prints failing cases.
	ShowFailure bool
	// ShowOutput dumps expected and actual output of failing cases.
	ShowOutput bool
	// ShowDiffs prints the diff of failing cases.
	ShowDiffs bool

	// Filter, when set, runs only cases whose description matches.
	Filter *regexp.Regexp
	// RunDisabled runs cases marked with the disabled option.
	RunDisabled bool

	// User is passed to the pre-save transform.
	User string
}

// Runner executes suites. It is not safe for concurrent use.
type Runner struct {
	cfg Config
}

// New returns a Runner. Missing optional collaborators get defaults: no
// capabilities, a plain comparator, discarded output and the default logger.
func New(cfg Config) *Runner {
	if cfg.Capabilities == nil {
		cfg.Capabilities = capability.Static{}
	}
	if cfg.Term == nil {
		cfg.Term = term.New(false)
	}
	if cfg.Comparator == nil {
		cfg.Comparator = compare.New(compare.Options{}, cfg.Term)
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{cfg: cfg}
}

// Run executes every suite in order and returns the summary. A non-nil
// error is a *FatalError or the context's error; the summary then covers
// the cases that ran before the abort.
func (r *Runner) Run(ctx context.Context, suites []*Suite) (summary *Summary, err error) {
	summary = &Summary{}
	rec := r.cfg.Recorder

	if err := rec.Start(ctx); err != nil {
		return summary, fatal("start recorder", err)
	}
	defer func() {
		if endErr := rec.End(ctx); endErr != nil && err == nil {
			err = fatal("end recorder", endErr)
		}
	}()

	if err := r.cfg.Env.Provision(ctx); err != nil {
		return summary, fatal("provision environment", err)
	}

	for _, suite := range suites {
		if err := r.runSuite(ctx, suite, summary); err != nil {
			return summary, errors.Join(err, r.teardown(ctx))
		}
	}

	if err := r.teardown(ctx); err != nil {
		return summary, err
	}
	if err := rec.Report(ctx); err != nil {
		return summary, fatal("report", err)
	}
	return summary, nil
}

func (r *Runner) teardown(ctx context.Context) error {
	if err := r.cfg.Env.Teardown(ctx); err != nil {
		return fatal("teardown environment", err)
	}
	return nil
}

func (r *Runner) runSuite(ctx context.Context, suite *Suite, summary *Summary) error {
	r.printf("Running parser tests from: %s\n", suite.Name)

	ok, err := r.hooksAvailable(ctx, suite)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	for _, a := range suite.Articles {
		if err := r.cfg.Env.AddArticle(ctx, a.Title, a.Text, a.IgnoreDuplicate); err != nil {
			return fatal("add article at "+a.Source, err)
		}
	}

	for i := range suite.Cases {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := r.runCase(ctx, &suite.Cases[i])
		if err != nil {
			return err
		}
		if res == nil {
			continue
		}
		summary.add(res)
		if err := r.record(ctx, res); err != nil {
			return fatal("record result", err)
		}
	}

	if r.cfg.ShowProgress {
		r.printf("\n")
	}
	return nil
}

// hooksAvailable reports whether the engine provides every hook the suite
// requires. A missing hook skips the whole file.
func (r *Runner) hooksAvailable(ctx context.Context, suite *Suite) (bool, error) {
	required := map[string][]string{
		render.TagHook:         suite.Hooks,
		render.FunctionHook:    suite.FunctionHooks,
		render.TransparentHook: suite.TransparentHooks,
	}
	needed := false
	for _, names := range required {
		needed = needed || len(names) > 0
	}
	if !needed {
		return true, nil
	}

	var hooks render.HookSet
	if hp, ok := r.cfg.Engine.(render.HookProvider); ok {
		var err error
		if hooks, err = hp.Hooks(ctx); err != nil {
			return false, fatal("query engine hooks", err)
		}
	}

	for _, kind := range []string{render.TagHook, render.FunctionHook, render.TransparentHook} {
		for _, name := range required[kind] {
			if !hooks.Has(kind, name) {
				r.printf("   This test suite requires the '%s' hook extension, skipping.\n", name)
				r.cfg.Logger.Info("skipping suite", "suite", suite.Name, "missing_hook", name, "kind", kind)
				return false, nil
			}
		}
	}
	return true, nil
}

func (r *Runner) record(ctx context.Context, res *Result) error {
	if res.Status == Skipped {
		if sr, ok := r.cfg.Recorder.(recorder.SkipRecorder); ok {
			return sr.RecordSkipped(ctx, res.Description, res.Subtest)
		}
	}
	return r.cfg.Recorder.Record(ctx, res.Description, res.Subtest, res.Status != Failed)
}

// runCase runs one case. It returns a nil result for cases that are
// filtered out or disabled, and an error only when the run must stop.
func (r *Runner) runCase(ctx context.Context, tc *TestCase) (*Result, error) {
	if r.cfg.Filter != nil && !r.cfg.Filter.MatchString(tc.Description) {
		return nil, nil
	}

	res := &Result{
		Description: tc.Description,
		Subtest:     tc.Subtest,
		Source:      tc.Source,
	}

	res.enter(ParsingOptions)
	opts := directive.Parse(tc.RawOptions)
	if opts.Has("disabled") && !r.cfg.RunDisabled {
		return nil, nil
	}
	if r.cfg.ShowProgress {
		r.showTesting(tc.Description)
	}

	if missing := r.missingCapability(opts); missing != "" {
		res.Status = Skipped
		res.SkipReason = missing
		r.showSkipped()
		return res, nil
	}

	mode, err := SelectMode(opts)
	if err != nil {
		return r.fail(res, err), nil
	}
	res.Mode = mode.String()

	// Restore must run before the next case prepares, whatever happens below.
	snap := r.cfg.Env.Snapshot()
	defer r.cfg.Env.Restore(snap)

	res.enter(PreparingContext)
	rc, err := r.cfg.Env.Prepare(ctx, opts, tc.RawConfig)
	if err != nil {
		return r.fail(res, err), nil
	}

	res.enter(Invoking)
	title := opts.String("title", DefaultTitle)
	actual, err := r.invoke(ctx, mode, tc.Input, title, rc)
	if err != nil {
		return r.fail(res, err), nil
	}

	res.enter(Normalizing)
	res.Expected = r.cfg.Normalize.Apply(tc.Expected)
	res.Actual = r.cfg.Normalize.Apply(actual)

	res.enter(Comparing)
	verdict := r.cfg.Comparator.Compare(res.Expected, res.Actual)

	res.enter(Reporting)
	if verdict.Pass {
		res.Status = Passed
		r.showSuccess()
	} else {
		res.Status = Failed
		res.Diff = verdict.Diff
		res.XMLError = verdict.XMLError
		r.showFailure(res)
	}
	r.cfg.Logger.Debug("case finished", "test", res.Description, "mode", res.Mode, "status", res.Status)
	return res, nil
}

// fail records a case that could not reach the comparison step.
func (r *Runner) fail(res *Result, err error) *Result {
	res.enter(Reporting)
	res.Status = Failed
	res.Err = err
	r.cfg.Logger.Debug("case errored", "test", res.Description, "error", err)
	r.showFailure(res)
	return res
}

func (r *Runner) missingCapability(opts directive.OptionSet) string {
	for _, name := range []string{capability.DjVu, capability.Tidy} {
		if opts.Has(name) && !r.cfg.Capabilities.Available(name) {
			return name
		}
	}
	return ""
}
