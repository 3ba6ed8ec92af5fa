package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rendertest/internal/capability"
	"github.com/roach88/rendertest/internal/compare"
	"github.com/roach88/rendertest/internal/env"
	"github.com/roach88/rendertest/internal/normalize"
	"github.com/roach88/rendertest/internal/recorder"
	"github.com/roach88/rendertest/internal/render"
	"github.com/roach88/rendertest/internal/runner"
	"github.com/roach88/rendertest/internal/store"
	"github.com/roach88/rendertest/internal/term"
	"github.com/roach88/rendertest/internal/testfile"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	ConfigFile  string
	Engine      string
	Color       string
	Quick       bool
	Quiet       bool
	ShowOutput  bool
	WordDiff    bool
	MarkWS      bool
	WellFormed  bool
	Normalize   []string
	Filter      string
	Record      bool
	Compare     bool
	Database    string
	Version     string
	RunDisabled bool
	KeepUploads bool
	User        string
	With        []string
	Without     []string

	// EngineOverride replaces the external engine (for testing).
	EngineOverride render.Engine

	forced   map[string]bool
	settings map[string]any
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>...",
		Short: "Run golden-output test files",
		Long: `Run golden-output test files against a rendering engine.

The engine is an external program. For every engine call it receives one
JSON request line on stdin and answers with one JSON object on stdout.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed, or no tests were found
  2 - Command error (bad flags, unreadable files, aborted run)

Examples:
  rendertest run --engine "php engine.php" parserTests.txt
  rendertest run --engine ./engine --quiet --norm removeTbody,trimWhitespace tests/*.txt
  rendertest run --config rendertest.yaml --record --db results.db parserTests.txt
  rendertest run --config rendertest.yaml --compare --db results.db parserTests.txt`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigFile != "" {
				cfg, err := LoadRunConfig(opts.ConfigFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid run configuration", err)
				}
				cfg.applyTo(opts, cmd.Flags())
			}
			return runFiles(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ConfigFile, "config", "", "YAML run configuration file")
	f.StringVar(&opts.Engine, "engine", "", "engine command line")
	f.StringVar(&opts.Color, "color", "auto", "colour output (yes|no|auto)")
	f.BoolVar(&opts.Quick, "quick", false, "suppress diff output of failed tests")
	f.BoolVar(&opts.Quiet, "quiet", false, "print only failed tests")
	f.BoolVar(&opts.ShowOutput, "show-output", false, "print expected and actual output of failed tests")
	f.BoolVar(&opts.WordDiff, "dwdiff", false, "use a word diff instead of a line diff")
	f.BoolVar(&opts.MarkWS, "mark-ws", false, "make whitespace visible in diffs")
	f.BoolVar(&opts.WellFormed, "well-formed", false, "check failed output for XML well-formedness")
	f.StringSliceVar(&opts.Normalize, "norm", nil, "normalization transforms applied to both sides ("+strings.Join(normalize.Known(), ", ")+")")
	f.StringVar(&opts.Filter, "filter", "", "run only tests whose description matches this regex")
	f.StringVar(&opts.Filter, "regex", "", "alias for --filter")
	f.BoolVar(&opts.Record, "record", false, "record results as the new baseline in the database")
	f.BoolVar(&opts.Compare, "compare", false, "compare results with the last recorded baseline")
	f.StringVar(&opts.Database, "db", "", "path to SQLite results database")
	f.StringVar(&opts.Version, "setversion", "", "version label stored with recorded runs")
	f.BoolVar(&opts.RunDisabled, "run-disabled", false, "run tests marked disabled")
	f.BoolVar(&opts.KeepUploads, "keep-uploads", false, "keep the upload directory after the run")
	f.StringVar(&opts.User, "user", "", "user name for pre-save transforms")
	f.StringSliceVar(&opts.With, "with", nil, "treat capabilities as available without probing")
	f.StringSliceVar(&opts.Without, "without", nil, "treat capabilities as unavailable")

	return cmd
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Skipped int          `json:"skipped"`
	Total   int          `json:"total"`
	Cases   []CaseReport `json:"cases"`
}

// CaseReport is one test in a RunReport.
type CaseReport struct {
	Name     string        `json:"name"`
	Subtest  string        `json:"subtest,omitempty"`
	Source   string        `json:"source,omitempty"`
	Mode     string        `json:"mode,omitempty"`
	Status   runner.Status `json:"status"`
	Diff     string        `json:"diff,omitempty"`
	Error    string        `json:"error,omitempty"`
	XMLError string        `json:"xml_error,omitempty"`
	Skipped  string        `json:"skip_reason,omitempty"`
}

func runFiles(cmd *cobra.Command, opts *RunOptions, files []string) error {
	log := opts.logger()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Record && opts.Compare {
		return NewExitError(ExitCommandError, "--record and --compare are mutually exclusive")
	}
	if opts.Record && opts.Filter != "" {
		log.Warn("a filter is set, results will not be recorded", "filter", opts.Filter)
		opts.Record = false
	}
	if (opts.Record || opts.Compare) && opts.Database == "" {
		return NewExitError(ExitCommandError, "--record and --compare need --db")
	}

	var filter *regexp.Regexp
	if opts.Filter != "" {
		re, err := regexp.Compile(opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid filter", err)
		}
		filter = re
	}

	suites := make([]*runner.Suite, 0, len(files))
	for _, path := range files {
		suite, err := testfile.Read(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load test file", err)
		}
		suites = append(suites, suite)
	}

	engine, err := opts.engine()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure engine", err)
	}

	progress := out.ProgressWriter()
	colorer := term.New(term.ParseMode(opts.Color, fileOf(progress)))

	rec, cleanup, err := opts.recorder(progress, colorer)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open results database", err)
	}
	defer cleanup()

	globals := env.NewGlobals(opts.settings, log)
	globals.KeepUploads = opts.KeepUploads

	r := runner.New(runner.Config{
		Engine:       engine,
		Env:          globals,
		Recorder:     rec,
		Capabilities: opts.capabilities(),
		Comparator: compare.New(compare.Options{
			MarkWhitespace:  opts.MarkWS,
			WordDiff:        opts.WordDiff,
			CheckWellFormed: opts.WellFormed,
		}, colorer),
		Normalize:    normalize.NewPipeline(opts.Normalize, log),
		Out:          progress,
		Term:         colorer,
		Logger:       log,
		ShowProgress: !opts.Quiet,
		ShowFailure:  !(opts.Quiet && (opts.Record || opts.Compare)),
		ShowOutput:   opts.ShowOutput,
		ShowDiffs:    !opts.Quick,
		Filter:       filter,
		RunDisabled:  opts.RunDisabled,
		User:         opts.User,
	})

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("running", "files", len(suites), "engine", opts.Engine)
	summary, runErr := r.Run(ctx, suites)

	if errors.Is(runErr, recorder.ErrNoTests) {
		if out.JSON() {
			_ = out.Error(ErrCodeTestsFailed, "no tests found", nil)
		}
		return NewExitError(ExitFailure, "no tests found")
	}
	if runErr != nil {
		if out.JSON() {
			_ = out.Error(ErrCodeRunAborted, runErr.Error(), report(summary))
		}
		return WrapExitError(ExitCommandError, "run aborted", runErr)
	}

	if out.JSON() {
		if err := out.Success(report(summary)); err != nil {
			return err
		}
	}
	if !summary.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d tests failed", summary.Failed))
	}
	return nil
}

func report(s *runner.Summary) RunReport {
	rep := RunReport{
		Passed:  s.Passed,
		Failed:  s.Failed,
		Skipped: s.Skipped,
		Total:   s.Total(),
		Cases:   make([]CaseReport, 0, len(s.Results)),
	}
	for _, res := range s.Results {
		c := CaseReport{
			Name:    res.Description,
			Subtest: res.Subtest,
			Source:  res.Source,
			Mode:    res.Mode,
			Status:  res.Status,
			Skipped: res.SkipReason,
		}
		if res.Status == runner.Failed {
			c.Diff = compare.Verdict{Diff: res.Diff}.PlainDiff()
		}
		if res.Err != nil {
			c.Error = res.Err.Error()
		}
		if res.XMLError != nil {
			c.XMLError = res.XMLError.Message
		}
		rep.Cases = append(rep.Cases, c)
	}
	return rep
}

func (o *RunOptions) engine() (render.Engine, error) {
	if o.EngineOverride != nil {
		return o.EngineOverride, nil
	}
	if o.Engine == "" {
		return nil, errors.New("no engine configured; use --engine or the engine key of --config")
	}
	return render.NewExecEngine(o.Engine, o.logger())
}

// recorder picks the backend: DB for --record, Previewer for --compare,
// Console otherwise. cleanup closes the store if one was opened.
func (o *RunOptions) recorder(w io.Writer, colorer term.Colorer) (recorder.Recorder, func(), error) {
	console := recorder.NewConsole(w, colorer)
	if !o.Record && !o.Compare {
		return console, func() {}, nil
	}

	st, err := store.Open(o.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			o.logger().Error("error closing database", "error", err)
		}
	}
	if o.Record {
		return recorder.NewDB(st, console, o.Version), cleanup, nil
	}
	return recorder.NewPreviewer(st, console), cleanup, nil
}

func (o *RunOptions) capabilities() capability.Checker {
	forced := capability.Static{}
	for name, ok := range o.forced {
		forced[name] = ok
	}
	for _, name := range o.With {
		forced[name] = true
	}
	for _, name := range o.Without {
		forced[name] = false
	}
	return capability.Override{Base: capability.NewProbe(), Forced: forced}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func fileOf(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}
