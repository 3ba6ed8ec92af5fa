package runner

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendertest/internal/capability"
	"github.com/roach88/rendertest/internal/compare"
	"github.com/roach88/rendertest/internal/normalize"
	"github.com/roach88/rendertest/internal/recorder"
	"github.com/roach88/rendertest/internal/render"
	"github.com/roach88/rendertest/internal/testutil"
)

type fixture struct {
	engine *testutil.StubEngine
	rec    *testutil.MemoryRecorder
	env    *testutil.TracingEnv
	out    *bytes.Buffer
	cfg    Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine: testutil.NewStubEngine(),
		rec:    testutil.NewMemoryRecorder(),
		env:    testutil.NewTracingEnv(t.TempDir()),
		out:    &bytes.Buffer{},
	}
	f.cfg = Config{
		Engine:       f.engine,
		Env:          f.env,
		Recorder:     f.rec,
		Capabilities: capability.Static{},
		Out:          f.out,
		ShowProgress: true,
		ShowFailure:  true,
		ShowDiffs:    true,
	}
	return f
}

func (f *fixture) run(t *testing.T, suites ...*Suite) (*Summary, error) {
	t.Helper()
	return New(f.cfg).Run(context.Background(), suites)
}

func suite(cases ...TestCase) *Suite {
	return &Suite{Name: "cases.txt", Cases: cases}
}

func TestRun_PassAndFail(t *testing.T) {
	f := newFixture(t)

	summary, err := f.run(t, suite(
		TestCase{Description: "echo", Input: "<p>A</p>", Expected: "<p>A</p>"},
		TestCase{Description: "mismatch", Input: "<p>A</p>", Expected: "<p>B</p>"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.OK())
	assert.Equal(t, []string{"start", "record echo true", "record mismatch false", "report", "end"}, f.rec.Events)

	failed := summary.Results[1]
	assert.Equal(t, Failed, failed.Status)
	assert.Contains(t, failed.Diff, "-<p>B</p>")
	assert.Contains(t, failed.Diff, "+<p>A</p>")
	assert.Equal(t, []State{ParsingOptions, PreparingContext, Invoking, Normalizing, Comparing, Reporting}, failed.States)
}

func TestRun_ModeDispatch(t *testing.T) {
	f := newFixture(t)
	f.cfg.User = "Tester"

	_, err := f.run(t, suite(
		TestCase{Description: "pst", Input: "~~~", RawOptions: "pst", Expected: "~~~"},
		TestCase{Description: "msg", Input: "m", RawOptions: "msg", Expected: "m"},
		TestCase{Description: "section", Input: "s", RawOptions: "section=2", Expected: "s"},
		TestCase{Description: "replace", Input: "r", RawOptions: `replace=1,"new"`, Expected: "r"},
		TestCase{Description: "comment", Input: "c", RawOptions: "comment local", Expected: "c"},
		TestCase{Description: "preload", Input: "p", RawOptions: "preload", Expected: "p"},
		TestCase{Description: "parse", Input: "x", RawOptions: `title="Main Page"`, Expected: "x"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{
		render.OpPreSaveTransform,
		render.OpTransformMessage,
		render.OpGetSection,
		render.OpReplaceSection,
		render.OpFormatComment,
		render.OpPreloadText,
		render.OpParse,
	}, f.engine.Ops())

	calls := f.engine.Calls
	assert.Equal(t, "Tester", calls[0].User)
	assert.Equal(t, DefaultTitle, calls[0].Title)
	assert.Equal(t, "2", calls[2].Section)
	assert.Equal(t, "1", calls[3].Section)
	assert.Equal(t, "new", calls[3].Text)
	assert.True(t, calls[4].Local)
	assert.Equal(t, "Main Page", calls[6].Title)
}

func TestRun_FullRenderPostProcessing(t *testing.T) {
	doc := &render.Document{
		Body:  "<p>Body</p>\n\n",
		TOC:   "<div id=\"toc\"></div>",
		Title: "Display <i>Title</i>",
		Indicators: []render.Indicator{
			{ID: "b", Content: "<span>B</span>"},
			{ID: "a", Content: "<span>A</span>"},
		},
		LanguageLinks: []string{"fr:Page", "de:Seite"},
		Categories: []render.Category{
			{Name: "Visible", Link: "Category:Visible"},
			{Name: "Hidden", Link: "Category:Hidden", Hidden: true},
			{Name: "Other", Link: "Category:Other"},
		},
	}

	tests := []struct {
		name    string
		options string
		want    string
	}{
		{"toc enabled", "", "<div id=\"toc\"></div><p>Body</p>\n\n"},
		{"notoc", "notoc", "<p>Body</p>\n\n"},
		{"notoc tidy", "notoc tidy", "<p>Body</p>"},
		{"showtitle", "notoc showtitle", "Display <i>Title</i>\n<p>Body</p>\n\n"},
		{"showindicators", "notoc showindicators", "b=<span>B</span>\na=<span>A</span>\n<p>Body</p>\n\n"},
		{"showtitle and indicators", "notoc showtitle showindicators", "b=<span>B</span>\na=<span>A</span>\nDisplay <i>Title</i>\n<p>Body</p>\n\n"},
		{"language links", "ill", "fr:Page de:Seite"},
		{"categories", "cat", "Category:Visible Category:Other"},
		{"ill beats cat", "cat ill", "fr:Page de:Seite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.Capabilities = capability.Static{capability.Tidy: true}
			f.engine.Documents["src"] = doc

			summary, err := f.run(t, suite(TestCase{Description: tt.name, Input: "src", RawOptions: tt.options, Expected: tt.want}))
			require.NoError(t, err)
			require.Len(t, summary.Results, 1)
			assert.Equal(t, tt.want, summary.Results[0].Actual)
			assert.Equal(t, Passed, summary.Results[0].Status, summary.Results[0].Diff)
		})
	}
}

func TestRun_ShowTitleFallsBackToTestTitle(t *testing.T) {
	f := newFixture(t)

	summary, err := f.run(t, suite(TestCase{Description: "t", Input: "x", RawOptions: `showtitle title="Some Page"`, Expected: "Some Page\nx"}))
	require.NoError(t, err)
	assert.Equal(t, Passed, summary.Results[0].Status)
}

func TestRun_MissingCapabilitySkipsWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	f.cfg.Capabilities = capability.Static{capability.Tidy: false}

	summary, err := f.run(t, suite(
		TestCase{Description: "needs tidy", Input: "x", RawOptions: "tidy", Expected: "anything"},
		TestCase{Description: "needs djvu", Input: "y", RawOptions: "djvu tidy", Expected: "anything"},
	))
	require.NoError(t, err)

	assert.Empty(t, f.engine.Calls)
	assert.Zero(t, f.env.Count("snapshot"))
	assert.Zero(t, f.env.Count("prepare"))
	assert.Equal(t, 2, summary.Skipped)
	assert.True(t, summary.OK())
	assert.Equal(t, capability.Tidy, summary.Results[0].SkipReason)
	assert.Equal(t, capability.DjVu, summary.Results[1].SkipReason)
	assert.Equal(t, []testutil.Recorded{
		{Test: "needs tidy", Skipped: true},
		{Test: "needs djvu", Skipped: true},
	}, f.rec.Results)
}

func TestRun_SkippedFallsBackToRecordForPlainRecorders(t *testing.T) {
	f := newFixture(t)
	f.cfg.Recorder = struct{ recorder.Recorder }{f.rec}

	_, err := f.run(t, suite(TestCase{Description: "needs djvu", Input: "x", RawOptions: "djvu"}))
	require.NoError(t, err)
	assert.Equal(t, []testutil.Recorded{{Test: "needs djvu", Passed: true}}, f.rec.Results)
}

func TestRun_EngineErrorFailsOnlyThatCase(t *testing.T) {
	f := newFixture(t)
	f.engine.Errors["boom"] = errors.New("engine exploded")

	summary, err := f.run(t, suite(
		TestCase{Description: "first", Input: "boom", Expected: "x"},
		TestCase{Description: "second", Input: "ok", Expected: "ok"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Passed)
	assert.EqualError(t, summary.Results[0].Err, "engine exploded")
	assert.Contains(t, f.out.String(), "Error: engine exploded")
	assert.Equal(t, 2, f.env.Count("snapshot"))
	assert.Equal(t, 2, f.env.Count("restore"))
}

func TestRun_EnginePanicFailsOnlyThatCase(t *testing.T) {
	f := newFixture(t)
	f.engine.Respond = func(c testutil.Call) (string, error) {
		if c.Input == "boom" {
			panic("nil settings")
		}
		return c.Input, nil
	}

	summary, err := f.run(t, suite(
		TestCase{Description: "first", Input: "boom", Expected: "x"},
		TestCase{Description: "second", Input: "ok", Expected: "ok"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Passed)
	assert.EqualError(t, summary.Results[0].Err, "engine panicked: nil settings")
	assert.Equal(t, 2, f.env.Count("restore"))
}

func TestRun_SnapshotAndRestorePairUp(t *testing.T) {
	f := newFixture(t)
	f.engine.Errors["boom"] = errors.New("engine exploded")

	_, err := f.run(t, suite(
		TestCase{Description: "ok", Input: "a", Expected: "a"},
		TestCase{Description: "engine error", Input: "boom"},
		TestCase{Description: "bad config", Input: "b", RawConfig: "wgFoo = [unterminated"},
		TestCase{Description: "bad mode", Input: "c", RawOptions: "replace=1"},
	))
	require.NoError(t, err)

	// A bad mode fails before any snapshot is taken.
	assert.Equal(t, 3, f.env.Count("snapshot"))
	assert.Equal(t, 3, f.env.Count("restore"))

	var trace []string
	for _, e := range f.env.Trace {
		if e == "snapshot" || e == "restore" {
			trace = append(trace, e)
		}
	}
	assert.Equal(t, []string{"snapshot", "restore", "snapshot", "restore", "snapshot", "restore"}, trace)
}

func TestRun_ConfigDoesNotLeakBetweenCases(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, suite(
		TestCase{Description: "with config", Input: "a", Expected: "a", RawConfig: "wgFoo = 42"},
		TestCase{Description: "without", Input: "b", Expected: "b"},
	))
	require.NoError(t, err)

	require.Len(t, f.engine.Calls, 2)
	assert.EqualValues(t, 42, f.engine.Calls[0].Options.Settings["wgFoo"])
	assert.NotContains(t, f.engine.Calls[1].Options.Settings, "wgFoo")
}

func TestRun_OptionsReachTheEngine(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, suite(TestCase{Description: "lang", Input: "a", Expected: "a", RawOptions: "language=sr variant=sr-ec"}))
	require.NoError(t, err)

	opts := f.engine.Calls[0].Options
	assert.Equal(t, "sr", opts.Language)
	assert.Equal(t, "sr-ec", opts.Variant)
	assert.Equal(t, "sr-ec", opts.Flags["variant"])
}

func TestRun_NormalizesBothSides(t *testing.T) {
	f := newFixture(t)
	f.cfg.Normalize = normalize.Pipeline{normalize.RemoveTbody}

	summary, err := f.run(t, suite(TestCase{
		Description: "tbody",
		Input:       "<table><tr><td>1</td></tr></table>",
		Expected:    "<table><tbody><tr><td>1</td></tr></tbody></table>",
	}))
	require.NoError(t, err)
	assert.Equal(t, Passed, summary.Results[0].Status, summary.Results[0].Diff)
}

func TestRun_FilterAndDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Filter = regexp.MustCompile("^keep")

	summary, err := f.run(t, suite(
		TestCase{Description: "keep me", Input: "a", Expected: "a"},
		TestCase{Description: "drop me", Input: "b", Expected: "b"},
		TestCase{Description: "keep but disabled", Input: "c", Expected: "c", RawOptions: "disabled"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total())
	assert.Equal(t, []string{"start", "record keep me true", "report", "end"}, f.rec.Events)

	f = newFixture(t)
	f.cfg.RunDisabled = true
	summary, err = f.run(t, suite(TestCase{Description: "disabled", Input: "c", Expected: "c", RawOptions: "disabled"}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed)
}

func TestRun_MissingHookSkipsFile(t *testing.T) {
	f := newFixture(t)
	f.engine.HookSet = render.HookSet{render.TagHook: {"ref"}}

	skipped := &Suite{
		Name:          "needs-hook.txt",
		FunctionHooks: []string{"if"},
		Cases:         []TestCase{{Description: "never runs", Input: "x"}},
	}
	kept := &Suite{
		Name:  "has-hook.txt",
		Hooks: []string{"REF"},
		Cases: []TestCase{{Description: "runs", Input: "y", Expected: "y"}},
	}

	summary, err := f.run(t, skipped, kept)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total())
	assert.Contains(t, f.out.String(), "   This test suite requires the 'if' hook extension, skipping.\n")
	assert.Equal(t, []string{render.OpParse}, f.engine.Ops())
}

func TestRun_HookQueryErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.engine.HooksErr = errors.New("no engine")

	_, err := f.run(t, &Suite{Name: "x.txt", Hooks: []string{"ref"}})

	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "query engine hooks", fe.Op)
	assert.Equal(t, 1, f.env.Count("teardown"))
	assert.NotContains(t, f.rec.Events, "report")
	assert.Contains(t, f.rec.Events, "end")
}

func TestRun_ArticlesAreRegisteredBeforeCases(t *testing.T) {
	f := newFixture(t)

	s := &Suite{
		Name:     "articles.txt",
		Articles: []Article{{Title: "Template:Foo", Text: "foo", Source: "articles.txt:1"}},
		Cases:    []TestCase{{Description: "uses article", Input: "{{Foo}}", Expected: "{{Foo}}"}},
	}
	_, err := f.run(t, s)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Template:Foo": "foo"}, f.engine.Calls[0].Options.Articles)
}

func TestRun_DuplicateArticleIsFatal(t *testing.T) {
	f := newFixture(t)

	s := &Suite{
		Name: "dup.txt",
		Articles: []Article{
			{Title: "Foo", Text: "one", Source: "dup.txt:1"},
			{Title: "Foo", Text: "two", Source: "dup.txt:5"},
		},
		Cases: []TestCase{{Description: "never runs", Input: "x"}},
	}
	summary, err := f.run(t, s)

	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "add article at dup.txt:5", fe.Op)
	assert.Zero(t, summary.Total())
	assert.Empty(t, f.engine.Calls)

	f = newFixture(t)
	s.Articles[1].IgnoreDuplicate = true
	_, err = f.run(t, s)
	require.NoError(t, err)
}

func TestRun_ProvisionErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.env.ProvisionErr = errors.New("read-only filesystem")

	summary, err := f.run(t, suite(TestCase{Description: "x", Input: "x"}))

	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "provision environment", fe.Op)
	assert.Zero(t, summary.Total())
	assert.Equal(t, []string{"start", "end"}, f.rec.Events)
}

func TestRun_RecorderErrors(t *testing.T) {
	tests := []struct {
		step string
		op   string
	}{
		{"start", "start recorder"},
		{"record", "record result"},
		{"report", "report"},
		{"end", "end recorder"},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			f := newFixture(t)
			f.rec.Fail[tt.step] = errors.New("db locked")

			_, err := f.run(t, suite(
				TestCase{Description: "a", Input: "a", Expected: "a"},
				TestCase{Description: "b", Input: "b", Expected: "b"},
			))

			var fe *FatalError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.op, fe.Op)
		})
	}
}

func TestRun_RecordErrorStopsRemainingCases(t *testing.T) {
	f := newFixture(t)
	f.rec.Fail["record"] = errors.New("db locked")

	_, err := f.run(t, suite(
		TestCase{Description: "a", Input: "a", Expected: "a"},
		TestCase{Description: "b", Input: "b", Expected: "b"},
	))
	require.Error(t, err)
	assert.Len(t, f.engine.Calls, 1)
	assert.Equal(t, 1, f.env.Count("teardown"))
}

func TestRun_CancelledContextStopsBetweenCases(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.engine.Respond = func(c testutil.Call) (string, error) {
		cancel()
		return c.Input, nil
	}

	summary, err := New(f.cfg).Run(ctx, []*Suite{suite(
		TestCase{Description: "a", Input: "a", Expected: "a"},
		TestCase{Description: "b", Input: "b", Expected: "b"},
	)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Total())
}

func TestRun_ProgressOutput(t *testing.T) {
	f := newFixture(t)
	f.cfg.Capabilities = capability.Static{}

	_, err := f.run(t, suite(
		TestCase{Description: "good", Input: "a", Expected: "a"},
		TestCase{Description: "bad", Input: "a", Expected: "b"},
		TestCase{Description: "tidy only", Input: "a", RawOptions: "tidy"},
	))
	require.NoError(t, err)

	want := "Running parser tests from: cases.txt\n" +
		"Running test good... PASSED\n" +
		"Running test bad... FAILED!\n" +
		"--- expected\n+++ actual\n@@ -1 +1 @@\n-b\n+a\n" +
		"Running test tidy only... SKIPPED\n" +
		"\n"
	assert.Equal(t, want, f.out.String())
}

func TestRun_QuietOutputOnlyShowsFailures(t *testing.T) {
	f := newFixture(t)
	f.cfg.ShowProgress = false
	f.cfg.ShowOutput = true
	f.cfg.ShowDiffs = false

	_, err := f.run(t, suite(
		TestCase{Description: "good", Input: "a", Expected: "a"},
		TestCase{Description: "bad", Input: "a", Expected: "b"},
	))
	require.NoError(t, err)

	want := "Running parser tests from: cases.txt\n" +
		"Running test bad... FAILED!\n" +
		"--- Expected ---\nb\n--- Actual ---\na\n"
	assert.Equal(t, want, f.out.String())
}

func TestRun_WellFormednessErrorIsShown(t *testing.T) {
	f := newFixture(t)
	f.cfg.Comparator = compare.New(compare.Options{CheckWellFormed: true}, nil)

	summary, err := f.run(t, suite(TestCase{Description: "broken", Input: "<p><b>x</p>", Expected: "<p><b>x</b></p>"}))
	require.NoError(t, err)

	require.NotNil(t, summary.Results[0].XMLError)
	assert.Contains(t, f.out.String(), "XML error: ")
}

func TestRun_EmptySuiteList(t *testing.T) {
	f := newFixture(t)

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.Zero(t, summary.Total())
	assert.Equal(t, []string{"provision", "teardown"}, f.env.Trace)
	assert.Equal(t, []string{"start", "report", "end"}, f.rec.Events)
}
