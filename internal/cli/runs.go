package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/rendertest/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunsResult is the JSON payload of the runs command.
type RunsResult struct {
	Runs    []store.Run    `json:"runs,omitempty"`
	Results []store.Result `json:"results,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded with "run --record", oldest first, or the
results of one run with --run.

Examples:
  rendertest runs --db results.db
  rendertest runs --db results.db --run 0f8c...
  rendertest runs --db results.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the results of this run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func listRuns(cmd *cobra.Command, opts *RunsOptions) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.logger().Error("error closing database", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)
	if opts.RunID != "" {
		results, err := st.Results(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read results", err)
		}
		if out.JSON() {
			return out.Success(RunsResult{Results: results})
		}
		renderResults(out.Writer, opts.RunID, results)
		return nil
	}

	runs, err := st.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}
	if out.JSON() {
		return out.Success(RunsResult{Runs: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(out.Writer, "No recorded runs.")
		return nil
	}
	renderRuns(out.Writer, runs)
	return nil
}

func renderRuns(w io.Writer, runs []store.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Run", "Version", "Platform", "Started"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.Seq, r.ID, r.Version, r.Platform, r.StartedAt})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func renderResults(w io.Writer, runID string, results []store.Result) {
	fmt.Fprintf(w, "Results of run %s\n", runID)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Test", "Result"})
	passed := 0
	for _, r := range results {
		status := "FAILED"
		if r.Passed {
			status = "passed"
			passed++
		}
		t.AppendRow(table.Row{r.Key(), status})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d tests", len(results)), fmt.Sprintf("%d passed", passed)})
	t.SetStyle(table.StyleLight)
	t.Render()
}
